// Package log provides structured event logging for the edgetwin agent.
//
// This package defines the Logger interface and Event types for capturing
// agent-level events at multiple layers (transport, twin, agent). It is
// separate from operational logging (slog) - event capture provides a
// complete machine-readable trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/edgetwin/agent.etlog")
//
//	// Both: use MultiLogger
//	cfg.EventLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/edgetwin/agent.etlog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw twin documents and publishes (MessageEvent)
//   - Twin: per-property dispatch outcomes (TwinEvent)
//   - Agent: lifecycle and connectivity changes (StateChangeEvent)
//
// Telemetry publishes and errors have dedicated event types.
//
// # File Format
//
// Log files use CBOR encoding with .etlog extension. The edgetwin-log CLI
// tool provides viewing, filtering, and export capabilities.
package log
