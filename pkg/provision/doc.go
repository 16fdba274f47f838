// Package provision creates device identities and derives per-device
// broker credentials.
//
// A fleet shares one enrollment key. Each device derives its own access
// key from the enrollment key and its device ID with HKDF-SHA256, so
// the hub can compute the same key on demand and individual device keys
// never need to be distributed. A device that boots without a
// configured identity generates one and persists it alongside its twin
// state.
package provision
