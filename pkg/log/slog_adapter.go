package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes agent events to an slog.Logger.
// Useful for development when you want to see agent events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}
	if event.Topic != "" {
		attrs = append(attrs, slog.String("topic", event.Topic))
	}

	// Add type-specific attributes
	switch {
	case event.Message != nil:
		attrs = append(attrs,
			slog.Int("payload_size", event.Message.Size),
			slog.Bool("truncated", event.Message.Truncated),
		)
	case event.Twin != nil:
		attrs = append(attrs, slog.String("action", event.Twin.Action.String()))
		if event.Twin.Property != "" {
			attrs = append(attrs, slog.String("property", event.Twin.Property))
		}
		if event.Twin.Kind != "" {
			attrs = append(attrs, slog.String("kind", event.Twin.Kind))
		}
		if event.Twin.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Twin.Reason))
		}
		if event.Twin.Size > 0 {
			attrs = append(attrs, slog.Int("report_size", event.Twin.Size))
		}
	case event.Telemetry != nil:
		attrs = append(attrs,
			slog.Int("msg_id", event.Telemetry.MsgID),
			slog.Int("envelope_size", event.Telemetry.Size),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "agent", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
