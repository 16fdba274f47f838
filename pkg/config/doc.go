// Package config loads the agent configuration.
//
// Configuration comes from three layers, later layers winning:
//
//  1. DefaultConfig
//  2. a YAML file (Load or Parse)
//  3. EDGETWIN_* environment variables (ApplyEnv)
//
// Environment overrides cover the deployment-varying settings (broker
// address, credentials, device identity, state directory); timing knobs
// are file-only. Validate checks the merged result.
package config
