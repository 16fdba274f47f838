// Package board abstracts the device peripherals: three LEDs and two
// push buttons, addressed by role rather than by pin.
//
// Two implementations exist. NewGPIO drives real pins through periph.io
// on Linux; NewSimulated keeps everything in memory so the agent can
// run on a desktop machine. The agent's "auto" backend tries GPIO and
// falls back to the simulation.
//
// Buttons are sampled, not interrupt-driven. ButtonPoller turns the
// sampled levels into press events for the agent's run loop.
package board
