package transport

import (
	"context"
	"sync"
	"time"

	"github.com/edgetwin/edgetwin-go/pkg/log"
)

// Loopback is an in-memory transport. Published payloads are retained
// for inspection and desired-state documents can be injected with
// PushDesired. It backs the agent's simulate mode and tests.
type Loopback struct {
	logger log.Logger

	mu        sync.Mutex
	connected bool
	closed    bool
	handler   DesiredStateHandler
	desired   []byte
	reported  [][]byte
	telemetry [][]byte
	requests  [][]string
}

// NewLoopback creates a loopback transport. A nil logger disables
// logging.
func NewLoopback(logger log.Logger) *Loopback {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Loopback{logger: logger}
}

// SetDesiredStateHandler registers the inbound document callback.
func (l *Loopback) SetDesiredStateHandler(handler DesiredStateHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = handler
}

// Connect marks the transport connected.
func (l *Loopback) Connect(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if !l.connected {
		l.connected = true
		l.logStateChange("Disconnected", "Connected", "")
	}
	return nil
}

// Connected reports whether Connect has been called.
func (l *Loopback) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Disconnect marks the transport disconnected without closing it.
// Sends fail with ErrNotConnected until Connect is called again.
func (l *Loopback) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.connected {
		l.connected = false
		l.logStateChange("Connected", "Disconnected", "dropped")
	}
}

// SendReportedState retains the reported-state fragment.
func (l *Loopback) SendReportedState(_ context.Context, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.sendable(); err != nil {
		return err
	}
	l.reported = append(l.reported, append([]byte(nil), payload...))
	l.logMessage(log.DirectionOut, "loopback/reported", payload)
	return nil
}

// SendTelemetry retains the telemetry envelope.
func (l *Loopback) SendTelemetry(_ context.Context, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.sendable(); err != nil {
		return err
	}
	l.telemetry = append(l.telemetry, append([]byte(nil), payload...))
	l.logMessage(log.DirectionOut, "loopback/telemetry", payload)
	return nil
}

// RequestTwin records the request and, when a desired-state document
// has been set with SetDesired, redelivers it to the handler.
func (l *Loopback) RequestTwin(_ context.Context, properties []string) error {
	l.mu.Lock()
	if err := l.sendable(); err != nil {
		l.mu.Unlock()
		return err
	}
	l.requests = append(l.requests, append([]string(nil), properties...))
	doc := l.desired
	handler := l.handler
	l.mu.Unlock()

	if doc != nil && handler != nil {
		l.deliver(handler, doc)
	}
	return nil
}

// Close marks the transport closed.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.connected = false
	return nil
}

// SetDesired stores the document redelivered by RequestTwin, without
// delivering it now.
func (l *Loopback) SetDesired(payload []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.desired = append([]byte(nil), payload...)
}

// PushDesired stores the document and delivers it to the handler, as a
// hub publish would.
func (l *Loopback) PushDesired(payload []byte) {
	l.mu.Lock()
	l.desired = append([]byte(nil), payload...)
	handler := l.handler
	connected := l.connected
	l.mu.Unlock()

	if connected && handler != nil {
		l.deliver(handler, payload)
	}
}

// Reported returns a copy of every reported-state fragment sent.
func (l *Loopback) Reported() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.reported))
	copy(out, l.reported)
	return out
}

// LastReported returns the most recent reported-state fragment, or nil.
func (l *Loopback) LastReported() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.reported) == 0 {
		return nil
	}
	return l.reported[len(l.reported)-1]
}

// Telemetry returns a copy of every telemetry envelope sent.
func (l *Loopback) Telemetry() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.telemetry))
	copy(out, l.telemetry)
	return out
}

// Requests returns the property lists passed to RequestTwin.
func (l *Loopback) Requests() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]string, len(l.requests))
	copy(out, l.requests)
	return out
}

func (l *Loopback) sendable() error {
	if l.closed {
		return ErrClosed
	}
	if !l.connected {
		return ErrNotConnected
	}
	return nil
}

func (l *Loopback) deliver(handler DesiredStateHandler, payload []byte) {
	l.logMessage(log.DirectionIn, "loopback/desired", payload)
	handler(payload)
}

func (l *Loopback) logMessage(dir log.Direction, topic string, payload []byte) {
	l.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Topic:     topic,
		Message: &log.MessageEvent{
			Size: len(payload),
			Data: append([]byte(nil), payload...),
		},
	})
}

func (l *Loopback) logStateChange(oldState, newState, reason string) {
	l.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerTransport,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityTransport,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
