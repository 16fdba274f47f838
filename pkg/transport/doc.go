// Package transport carries twin documents and telemetry between the
// agent and the cloud hub.
//
// The hub is an external service; this package is a thin client, not a
// networking stack. The MQTT implementation speaks to any broker the hub
// fronts, using one topic family per device:
//
//	<root>/twin/<deviceID>/desired    hub -> device, desired-state documents
//	<root>/twin/<deviceID>/reported   device -> hub, reported-state fragments
//	<root>/twin/<deviceID>/get        device -> hub, resend request
//	<root>/telemetry/<deviceID>       device -> hub, telemetry envelopes
//
// The default root is "edgetwin".
//
// # Delivery Model
//
// Publishes are fire-and-forget: Send methods return once the client has
// accepted the message, and the broker acknowledgement is awaited on a
// background goroutine for logging only. Inbound desired-state documents
// are delivered to the registered handler on the client's own goroutine;
// the agent funnels them onto its run loop before touching twin state.
//
// # Loopback
//
// Loopback is an in-memory implementation used by the agent's simulate
// mode and by tests: reports are retained for inspection and desired
// documents can be injected directly.
package transport
