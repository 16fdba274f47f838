// Package twin implements the device-twin synchronization core.
//
// A device twin is a cloud-held JSON document mirroring a device's state.
// The cloud pushes desired values down; the device applies them to typed
// local bindings and reports the resulting state back up.
//
// # Data Flow
//
//	desired document -> Dispatcher -> per-property dispatch -> handler
//	                                                             |
//	                             transport <- Reporter <---------+
//
// # Bindings
//
// Each cloud-synchronized property is a Binding: a property name, a value
// kind, a fixed-size tagged variant holding the current value, and an
// optional handler invoked after a new value is accepted and before it is
// reported. Bindings are built through per-kind constructors, so a binding
// without a valid kind cannot exist:
//
//	blinkRate := twin.NewInteger("led1BlinkRate", onBlinkRateChanged)
//	ledOn     := twin.NewBoolean("ledOn", nil)
//
//	registry, err := twin.NewRegistry(blinkRate, ledOn)
//
// # Document Shapes
//
// The dispatcher accepts a full twin document with a top-level "desired"
// object, or a desired-only document:
//
//	{"desired": {"led1BlinkRate": {"value": 42}}, "reported": {...}}
//	{"led1BlinkRate": {"value": 42}}
//
// Malformed documents are dropped whole; a property whose entry is not an
// object, or whose "value" is absent or has the wrong JSON type, is
// skipped without blocking the other properties in the same document.
// Drops and skips are counted and visible through Dispatcher.Stats.
//
// # String Values
//
// String values are not owned by the binding. A desired string is borrowed
// from the inbound document for the duration of the dispatch that produced
// it and released right after the report is sent; handlers must read it
// inside the callback.
//
// # Concurrency
//
// The package takes no locks. All dispatch and reporting is expected to run
// on a single goroutine (the agent's run loop); see pkg/agent.
package twin
