package agent

import (
	"errors"
	"log/slog"
	"time"

	"github.com/edgetwin/edgetwin-go/pkg/board"
	"github.com/edgetwin/edgetwin-go/pkg/log"
	"github.com/edgetwin/edgetwin-go/pkg/persistence"
	"github.com/edgetwin/edgetwin-go/pkg/sensor"
	"github.com/edgetwin/edgetwin-go/pkg/transport"
	"github.com/edgetwin/edgetwin-go/pkg/version"
)

// Agent errors.
var (
	ErrNotStarted     = errors.New("agent not started")
	ErrAlreadyStarted = errors.New("agent already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrBusy           = errors.New("agent command queue full")
)

// State represents the agent lifecycle state.
type State uint8

const (
	// StateIdle - agent created but not started.
	StateIdle State = iota

	// StateStarting - agent is starting up.
	StateStarting

	// StateRunning - agent is running normally.
	StateRunning

	// StateStopping - agent is shutting down.
	StateStopping

	// StateStopped - agent has stopped.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Event types for agent callbacks.
type EventType uint8

const (
	// EventConnectivityChanged - hub connectivity went up or down.
	EventConnectivityChanged EventType = iota

	// EventButtonPressed - a board button was pressed.
	EventButtonPressed

	// EventBlinkRateChanged - the status LED interval changed.
	EventBlinkRateChanged

	// EventDesiredApplied - a desired property value was applied.
	EventDesiredApplied

	// EventTelemetrySent - a telemetry document was handed to the hub.
	EventTelemetrySent

	// EventTwinRequested - the staged desired document was requested.
	EventTwinRequested
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventConnectivityChanged:
		return "CONNECTIVITY_CHANGED"
	case EventButtonPressed:
		return "BUTTON_PRESSED"
	case EventBlinkRateChanged:
		return "BLINK_RATE_CHANGED"
	case EventDesiredApplied:
		return "DESIRED_APPLIED"
	case EventTelemetrySent:
		return "TELEMETRY_SENT"
	case EventTwinRequested:
		return "TWIN_REQUESTED"
	default:
		return "UNKNOWN"
	}
}

// Event represents an agent event.
type Event struct {
	// Type is the event type.
	Type EventType

	// Property is the twin property name (for twin-related events).
	Property string

	// Value carries the event payload: the button for button events, the
	// new interval for blink changes, the message ID for telemetry.
	Value any
}

// EventHandler handles agent events. Handlers run on their own
// goroutines and must not call back into the agent synchronously.
type EventHandler func(Event)

// Config configures an Agent.
type Config struct {
	// DeviceID identifies this device to the hub. Required.
	DeviceID string

	// Transport carries twin and telemetry traffic. Required.
	Transport transport.Transport

	// Board drives the LEDs and buttons. Required.
	Board board.Board

	// Sensor produces telemetry samples. Required when telemetry is
	// enabled.
	Sensor sensor.Sensor

	// StateStore persists agent state across restarts. Optional.
	StateStore *persistence.StateStore

	// Manifest is the twin property manifest the bindings are validated
	// against at startup. Optional.
	Manifest *version.Manifest

	// TelemetryEnabled turns the telemetry loop on.
	TelemetryEnabled bool

	// TelemetryInterval is the time between sensor readings.
	TelemetryInterval time.Duration

	// ButtonPoll is the button sampling period.
	ButtonPoll time.Duration

	// NetworkCheck is the connectivity LED refresh period.
	NetworkCheck time.Duration

	// SendPulse is how long the send LED stays lit after a telemetry
	// publish.
	SendPulse time.Duration

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger captures structured protocol events.
	// If nil, event capture is disabled.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a Config with sensible defaults. The caller
// still has to supply the device ID, transport and board.
func DefaultConfig() Config {
	return Config{
		TelemetryEnabled:  true,
		TelemetryInterval: 10 * time.Second,
		ButtonPoll:        20 * time.Millisecond,
		NetworkCheck:      5 * time.Second,
		SendPulse:         300 * time.Millisecond,
	}
}

// Validate checks if the agent config is valid.
func (c *Config) Validate() error {
	if c.DeviceID == "" {
		return ErrInvalidConfig
	}
	if c.Transport == nil {
		return ErrInvalidConfig
	}
	if c.Board == nil {
		return ErrInvalidConfig
	}
	if c.TelemetryEnabled && c.Sensor == nil {
		return ErrInvalidConfig
	}
	if c.TelemetryEnabled && c.TelemetryInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.ButtonPoll <= 0 {
		return ErrInvalidConfig
	}
	if c.NetworkCheck <= 0 {
		return ErrInvalidConfig
	}
	if c.SendPulse <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
