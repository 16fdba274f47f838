// Package sensor provides environment readings for the telemetry loop.
//
// A Sensor produces point-in-time Samples of temperature, humidity,
// barometric pressure and ambient light. The Simulated implementation
// generates a bounded random walk around typical indoor values, which is
// what development boards without click sensors report. Fixed returns a
// constant sample and is intended for tests.
package sensor
