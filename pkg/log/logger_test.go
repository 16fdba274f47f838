package log

import "testing"

func TestNoopLoggerDiscards(t *testing.T) {
	var logger NoopLogger

	// Should not panic on arbitrary events, including the zero value.
	logger.Log(Event{})
	logger.Log(Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerTwin, Message: "boom"},
	})
}

// recordingLogger captures events for test assertions.
type recordingLogger struct {
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.events = append(r.events, event)
}
