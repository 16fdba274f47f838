package transport

import (
	"context"
	"errors"

	"github.com/edgetwin/edgetwin-go/pkg/twin"
)

var (
	// ErrNotConnected is returned by send operations before Connect has
	// succeeded or after the connection has been lost.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("transport: closed")

	// ErrMissingBroker is returned by Connect when no broker URL is set.
	ErrMissingBroker = errors.New("transport: missing broker URL")

	// ErrMissingDeviceID is returned by Connect when no device ID is set.
	ErrMissingDeviceID = errors.New("transport: missing device ID")
)

// DesiredStateHandler receives the raw payload of an inbound
// desired-state document. It is invoked on the transport's goroutine.
type DesiredStateHandler func(payload []byte)

// Transport moves twin documents and telemetry for a single device.
type Transport interface {
	// Connect establishes the connection and subscribes to the device's
	// desired-state topic. It is idempotent while connected.
	Connect(ctx context.Context) error

	// Connected reports whether the transport can currently send.
	Connected() bool

	// SendReportedState publishes a reported-state fragment.
	SendReportedState(ctx context.Context, payload []byte) error

	// SendTelemetry publishes a telemetry envelope.
	SendTelemetry(ctx context.Context, payload []byte) error

	// RequestTwin asks the hub to resend the desired state for the given
	// properties. The reply arrives through the desired-state handler.
	RequestTwin(ctx context.Context, properties []string) error

	// SetDesiredStateHandler registers the callback for inbound
	// desired-state documents. Must be called before Connect.
	SetDesiredStateHandler(handler DesiredStateHandler)

	// Close tears the connection down. The transport cannot be reused.
	Close() error
}

var (
	_ Transport      = (*MQTT)(nil)
	_ Transport      = (*Loopback)(nil)
	_ twin.Transport = Transport(nil)
)
