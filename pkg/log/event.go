package log

import (
	"time"
)

// Event represents an agent log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// DeviceID is the agent's device identifier.
	DeviceID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates message flow relative to the device.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Topic is the transport topic, when the event is tied to one.
	Topic string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"10,keyasint,omitempty"` // Raw payloads in/out
	Twin        *TwinEvent        `cbor:"11,keyasint,omitempty"` // Per-property dispatch outcome
	Telemetry   *TelemetryEvent   `cbor:"12,keyasint,omitempty"` // Telemetry publish
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"` // Agent/transport/binding state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow relative to the device.
type Direction uint8

const (
	// DirectionIn indicates a cloud-to-device message (desired state).
	DirectionIn Direction = 0
	// DirectionOut indicates a device-to-cloud message (reported state, telemetry).
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which agent layer captured the event.
type Layer uint8

const (
	// LayerTransport is the cloud messaging layer (raw payload bytes).
	LayerTransport Layer = 0
	// LayerTwin is the twin dispatch and reporting layer.
	LayerTwin Layer = 1
	// LayerAgent is the application/agent layer.
	LayerAgent Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerTwin:
		return "TWIN"
	case LayerAgent:
		return "AGENT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a raw transport message.
	CategoryMessage Category = 0
	// CategoryTwin indicates a twin property outcome.
	CategoryTwin Category = 1
	// CategoryTelemetry indicates a telemetry publish.
	CategoryTelemetry Category = 2
	// CategoryState indicates a state change.
	CategoryState Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryTwin:
		return "TWIN"
	case CategoryTelemetry:
		return "TELEMETRY"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MessageEvent captures a raw payload at the transport layer.
type MessageEvent struct {
	// Size is the payload size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw payload (may be truncated for large payloads).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// TwinEvent captures the outcome of handling one twin property, or of an
// inbound document as a whole when Property is empty.
type TwinEvent struct {
	// Property is the twin property name (empty for whole-document events).
	Property string `cbor:"1,keyasint,omitempty"`

	// Kind is the binding's value kind name.
	Kind string `cbor:"2,keyasint,omitempty"`

	// Action is what happened to the property or document.
	Action TwinAction `cbor:"3,keyasint"`

	// Reason explains ignored and dropped actions.
	Reason string `cbor:"4,keyasint,omitempty"`

	// Size is the serialized report size for reported actions.
	Size int `cbor:"5,keyasint,omitempty"`
}

// TwinAction indicates what happened to a twin property or document.
type TwinAction uint8

const (
	// TwinApplied indicates a desired value was stored.
	TwinApplied TwinAction = 0
	// TwinIgnored indicates a property was skipped (absent or mis-typed value).
	TwinIgnored TwinAction = 1
	// TwinDropped indicates a whole document was dropped (parse failure).
	TwinDropped TwinAction = 2
	// TwinReported indicates a reported-state publish was handed to the transport.
	TwinReported TwinAction = 3
)

// String returns the twin action name.
func (a TwinAction) String() string {
	switch a {
	case TwinApplied:
		return "APPLIED"
	case TwinIgnored:
		return "IGNORED"
	case TwinDropped:
		return "DROPPED"
	case TwinReported:
		return "REPORTED"
	default:
		return "UNKNOWN"
	}
}

// TelemetryEvent captures a telemetry publish.
type TelemetryEvent struct {
	// MsgID is the rolling telemetry message identifier.
	MsgID int `cbor:"1,keyasint"`

	// Size is the serialized envelope size in bytes.
	Size int `cbor:"2,keyasint"`
}

// StateChangeEvent captures agent, transport and binding lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityAgent indicates an agent lifecycle change.
	StateEntityAgent StateEntity = 0
	// StateEntityTransport indicates a transport connectivity change.
	StateEntityTransport StateEntity = 1
	// StateEntityBinding indicates a twin binding sync-state change.
	StateEntityBinding StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityAgent:
		return "AGENT"
	case StateEntityTransport:
		return "TRANSPORT"
	case StateEntityBinding:
		return "BINDING"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
