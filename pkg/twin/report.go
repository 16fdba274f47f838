package twin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/edgetwin/edgetwin-go/pkg/log"
)

// Transport is the narrow outbound interface the reporter needs. The full
// cloud client lives in pkg/transport; anything with these two methods can
// carry state reports.
type Transport interface {
	// Connect establishes the cloud connection if it is not already up.
	Connect(ctx context.Context) error

	// SendReportedState hands one reported-state fragment to the cloud.
	SendReportedState(ctx context.Context, payload []byte) error
}

// Reporter errors.
var (
	ErrNoTransport = errors.New("no transport configured")
	ErrNoValue     = errors.New("no value to report")
	ErrValueKind   = errors.New("value does not match binding kind")
)

// Reporter serializes binding state into single-property JSON fragments
// and hands them to the transport. A successful report transitions the
// binding to StateSynced. There is no retry; callers may report again.
//
// A Reporter must only be driven from one goroutine.
type Reporter struct {
	transport Transport
	logger    log.Logger
}

// NewReporter creates a reporter over the given transport.
// logger may be nil to disable event logging.
func NewReporter(transport Transport, logger log.Logger) *Reporter {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Reporter{
		transport: transport,
		logger:    logger,
	}
}

// ReportState serializes the binding's current value and sends it as
// reported state. Connection establishment is a precondition: if Connect
// fails the report fails with no side effects.
func (r *Reporter) ReportState(ctx context.Context, b *Binding) error {
	if r.transport == nil {
		return ErrNoTransport
	}
	if err := r.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	payload, err := serializeState(b)
	if err != nil {
		return err
	}
	return r.send(ctx, b, payload)
}

// ReportValue overwrites the binding's stored value with value and sends
// the result as reported state. For KindString the value is serialized
// directly without being stored. A value whose Go type does not match the
// binding's kind is refused before anything is stored.
func (r *Reporter) ReportValue(ctx context.Context, b *Binding, value any) error {
	if r.transport == nil {
		return ErrNoTransport
	}
	if err := r.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	payload, err := serializeValue(b, value)
	if err != nil {
		return err
	}
	return r.send(ctx, b, payload)
}

func (r *Reporter) send(ctx context.Context, b *Binding, payload []byte) error {
	if err := r.transport.SendReportedState(ctx, payload); err != nil {
		return fmt.Errorf("send reported state: %w", err)
	}

	if b.markSynced() {
		r.logger.Log(log.Event{
			Timestamp: time.Now(),
			Direction: log.DirectionOut,
			Layer:     log.LayerTwin,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityBinding,
				OldState: StateUnset.String(),
				NewState: StateSynced.String(),
				Reason:   b.property,
			},
		})
	}

	r.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionOut,
		Layer:     log.LayerTwin,
		Category:  log.CategoryTwin,
		Twin: &log.TwinEvent{
			Property: b.property,
			Kind:     b.Kind().String(),
			Action:   log.TwinReported,
			Size:     len(payload),
		},
	})
	return nil
}

// serializeState renders the binding's current value. Numeric and boolean
// cells serialize their zero value when nothing was ever stored; a String
// binding without a live borrow has nothing to serialize.
func serializeState(b *Binding) ([]byte, error) {
	switch b.Kind() {
	case KindInteger:
		n, _ := b.Integer()
		return encodeReport(b.property, strconv.AppendInt(nil, n, 10))
	case KindFloat:
		f, _ := b.Float()
		return encodeReport(b.property, appendFloat(nil, f))
	case KindBoolean:
		v, _ := b.Bool()
		return encodeReport(b.property, strconv.AppendBool(nil, v))
	case KindString:
		s, ok := b.StringValue()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoValue, b.property)
		}
		quoted, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		return encodeReport(b.property, quoted)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoValue, b.property)
	}
}

// serializeValue stores value (except for KindString) and renders it.
func serializeValue(b *Binding, value any) ([]byte, error) {
	switch b.Kind() {
	case KindInteger:
		n, ok := toInt64(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants an integer", ErrValueKind, b.property)
		}
		b.value.setInteger(n)
		return encodeReport(b.property, strconv.AppendInt(nil, n, 10))

	case KindFloat:
		f, ok := toFloat32(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants a number", ErrValueKind, b.property)
		}
		b.value.setFloat(f)
		return encodeReport(b.property, appendFloat(nil, f))

	case KindBoolean:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants a boolean", ErrValueKind, b.property)
		}
		b.value.setBool(v)
		return encodeReport(b.property, strconv.AppendBool(nil, v))

	case KindString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants a string", ErrValueKind, b.property)
		}
		quoted, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		return encodeReport(b.property, quoted)

	default:
		return nil, fmt.Errorf("%w: %s", ErrValueKind, b.property)
	}
}

// encodeReport builds the single-property fragment {"<property>":<value>}.
func encodeReport(property string, value []byte) ([]byte, error) {
	name, err := json.Marshal(property)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(name)+len(value)+3)
	buf = append(buf, '{')
	buf = append(buf, name...)
	buf = append(buf, ':')
	buf = append(buf, value...)
	buf = append(buf, '}')
	return buf, nil
}

// appendFloat renders a float cell in fixed decimal notation.
func appendFloat(dst []byte, f float32) []byte {
	return strconv.AppendFloat(dst, float64(f), 'f', 6, 64)
}

// Helper functions for value conversion.

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat32(v any) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	case int:
		return float32(n), true
	case int32:
		return float32(n), true
	case int64:
		return float32(n), true
	default:
		return 0, false
	}
}
