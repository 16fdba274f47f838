package twin

import (
	"context"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/edgetwin/edgetwin-go/pkg/log"
)

// Stats is a snapshot of dispatch outcomes since the dispatcher was
// created.
type Stats struct {
	// DocumentsHandled is the number of inbound desired-state documents.
	DocumentsHandled uint64

	// DocumentsDropped is the number of documents dropped whole because
	// they did not parse as a JSON object.
	DocumentsDropped uint64

	// PropertiesApplied is the number of property values stored.
	PropertiesApplied uint64

	// PropertiesIgnored is the number of matched properties skipped
	// because the entry was not an object or the value was absent,
	// null or of the wrong JSON type.
	PropertiesIgnored uint64
}

// statCounters backs Stats with atomics so snapshots can be taken off
// the dispatch goroutine.
type statCounters struct {
	documentsHandled  atomic.Uint64
	documentsDropped  atomic.Uint64
	propertiesApplied atomic.Uint64
	propertiesIgnored atomic.Uint64
}

func (c *statCounters) snapshot() Stats {
	return Stats{
		DocumentsHandled:  c.documentsHandled.Load(),
		DocumentsDropped:  c.documentsDropped.Load(),
		PropertiesApplied: c.propertiesApplied.Load(),
		PropertiesIgnored: c.propertiesIgnored.Load(),
	}
}

// Dispatcher is the protocol entry point for inbound desired-state
// documents. It parses each document, matches registered bindings by
// property name and applies matching values.
//
// A Dispatcher must only be driven from one goroutine.
type Dispatcher struct {
	registry *Registry
	reporter *Reporter
	logger   log.Logger
	stats    statCounters
}

// NewDispatcher creates a dispatcher over the given registry and reporter.
// logger may be nil to disable event logging.
func NewDispatcher(registry *Registry, reporter *Reporter, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Dispatcher{
		registry: registry,
		reporter: reporter,
		logger:   logger,
	}
}

// Stats returns a snapshot of the dispatch counters. Unlike
// HandleDesiredState it may be called from any goroutine.
func (d *Dispatcher) Stats() Stats {
	return d.stats.snapshot()
}

// HandleDesiredState processes one inbound twin document.
//
// The document may be a full twin document carrying a top-level "desired"
// object, or the desired object itself; when no "desired" object exists the
// whole document is used as the desired-properties root. A document that
// does not parse as a JSON object is dropped: no binding changes, no
// handler runs, the drop is counted and logged.
//
// Failures never escape a single document; each property is handled
// independently.
func (d *Dispatcher) HandleDesiredState(ctx context.Context, payload []byte) {
	d.stats.documentsHandled.Add(1)

	var root map[string]json.RawMessage
	if err := json.Unmarshal(payload, &root); err != nil {
		d.stats.documentsDropped.Add(1)
		d.logger.Log(log.Event{
			Timestamp: time.Now(),
			Direction: log.DirectionIn,
			Layer:     log.LayerTwin,
			Category:  log.CategoryTwin,
			Twin: &log.TwinEvent{
				Action: log.TwinDropped,
				Reason: err.Error(),
			},
		})
		return
	}

	// Full twin documents wrap the properties in a "desired" object.
	// Fall back to the whole document when no such object exists.
	desired := root
	if raw, ok := root["desired"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil {
			desired = nested
		}
	}

	for _, b := range d.registry.Bindings() {
		raw, ok := desired[b.property]
		if !ok {
			continue
		}
		d.setDesired(ctx, b, raw)
	}
}

// desiredEntry is the per-property object shape: {"value": <v>, ...}.
type desiredEntry struct {
	Value json.RawMessage `json:"value"`
}

// setDesired applies one matched desired entry to its binding: extract the
// typed value, store it, run the optional handler, report the new state.
// An entry that is not an object, or whose value is absent, null or of the
// wrong JSON type, is ignored without touching the binding.
func (d *Dispatcher) setDesired(ctx context.Context, b *Binding, raw json.RawMessage) {
	var entry desiredEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		d.ignore(b, "entry is not an object")
		return
	}
	if len(entry.Value) == 0 || string(entry.Value) == "null" {
		d.ignore(b, "no value")
		return
	}

	switch b.Kind() {
	case KindInteger:
		var n float64
		if err := json.Unmarshal(entry.Value, &n); err != nil {
			d.ignore(b, "value is not a number")
			return
		}
		b.value.setInteger(int64(n))

	case KindFloat:
		var n float64
		if err := json.Unmarshal(entry.Value, &n); err != nil {
			d.ignore(b, "value is not a number")
			return
		}
		b.value.setFloat(float32(n))

	case KindBoolean:
		var v bool
		if err := json.Unmarshal(entry.Value, &v); err != nil {
			d.ignore(b, "value is not a boolean")
			return
		}
		b.value.setBool(v)

	case KindString:
		var s string
		if err := json.Unmarshal(entry.Value, &s); err != nil {
			d.ignore(b, "value is not a string")
			return
		}
		b.value.bindString(s)
	}

	d.stats.propertiesApplied.Add(1)
	d.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerTwin,
		Category:  log.CategoryTwin,
		Twin: &log.TwinEvent{
			Property: b.property,
			Kind:     b.Kind().String(),
			Action:   log.TwinApplied,
		},
	})

	if b.handler != nil {
		b.handler(b)
	}

	if d.reporter != nil {
		if err := d.reporter.ReportState(ctx, b); err != nil {
			d.logger.Log(log.Event{
				Timestamp: time.Now(),
				Direction: log.DirectionOut,
				Layer:     log.LayerTwin,
				Category:  log.CategoryError,
				Error: &log.ErrorEventData{
					Layer:   log.LayerTwin,
					Message: err.Error(),
					Context: "report desired state for " + b.property,
				},
			})
		}
	}

	// The borrow aliases the inbound document; it must not outlive this
	// dispatch.
	if b.Kind() == KindString {
		b.value.releaseString()
	}
}

func (d *Dispatcher) ignore(b *Binding, reason string) {
	d.stats.propertiesIgnored.Add(1)
	d.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerTwin,
		Category:  log.CategoryTwin,
		Twin: &log.TwinEvent{
			Property: b.property,
			Kind:     b.Kind().String(),
			Action:   log.TwinIgnored,
			Reason:   reason,
		},
	})
}
