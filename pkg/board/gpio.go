package board

// GPIOPins names the pins backing each peripheral role. Names follow
// the gpioreg convention, e.g. "GPIO17" for BCM pin 17.
type GPIOPins struct {
	// LED pins (outputs).
	LED1       string
	LED2       string
	NetworkLED string

	// Button pins (inputs with pull-ups; pressed pulls to ground).
	ButtonA string
	ButtonB string

	// ActiveLowLEDs marks LEDs that sink current: on drives the pin low.
	ActiveLowLEDs bool
}

// DefaultGPIOPins returns the reference wiring.
func DefaultGPIOPins() GPIOPins {
	return GPIOPins{
		LED1:       "GPIO17",
		LED2:       "GPIO27",
		NetworkLED: "GPIO22",
		ButtonA:    "GPIO5",
		ButtonB:    "GPIO6",
	}
}
