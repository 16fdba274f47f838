// Package schedule provides the timing primitives behind the board LEDs.
//
// Table holds the cycle of blink intervals for the status LED. The run
// loop reads the current interval for its ticker; a button press or a
// desired-state write advances or repositions the cycle.
//
// OneShot is a rearmable single-fire timer used to turn the send LED
// back off a fixed delay after a telemetry publish. Rearming an armed
// OneShot replaces the pending delay; a stale expiry from a replaced
// delay never fires.
package schedule
