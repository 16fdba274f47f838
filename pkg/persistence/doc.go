// Package persistence stores agent state that must survive restarts:
// the device identity, the telemetry message watermark, the selected
// blink interval, and the last reported twin values.
package persistence
