// Package agent orchestrates one edgetwin device.
//
// The agent owns the twin registry and its bindings, the board LEDs and
// buttons, the telemetry loop and the persisted state file. All of it is
// driven from a single run loop goroutine: tickers fire the LED blink,
// button polling, connectivity checks and telemetry reads; inbound
// desired-state documents and console commands are funneled into the
// same loop over channels. Code outside the loop never touches a
// binding directly.
//
// Lifecycle follows Start/Stop with explicit states. Start restores
// persisted state, validates the bindings against the twin property
// manifest, connects to the hub and launches the loop. The first time
// the hub is reachable the agent reports its full state and requests
// the staged desired document, so a device that was offline converges
// without waiting for the hub to push.
package agent
