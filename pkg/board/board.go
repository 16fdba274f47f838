package board

import "errors"

// ErrGPIOUnavailable is returned by NewGPIO when the platform has no
// usable GPIO hardware.
var ErrGPIOUnavailable = errors.New("board: GPIO unavailable on this platform")

// LED identifies an LED by role.
type LED uint8

const (
	// LED1 blinks at the configured interval.
	LED1 LED = iota
	// LED2 is pulsed by cloud and button events.
	LED2
	// NetworkLED indicates hub connectivity.
	NetworkLED
)

// String returns the LED role name.
func (l LED) String() string {
	switch l {
	case LED1:
		return "LED1"
	case LED2:
		return "LED2"
	case NetworkLED:
		return "NETWORK"
	default:
		return "UNKNOWN"
	}
}

// Button identifies a push button by role.
type Button uint8

const (
	// ButtonA cycles the LED1 blink interval.
	ButtonA Button = iota
	// ButtonB triggers a twin resend request.
	ButtonB
)

// String returns the button role name.
func (b Button) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	default:
		return "UNKNOWN"
	}
}

// Board is the peripheral interface.
type Board interface {
	// SetLED drives an LED on or off.
	SetLED(led LED, on bool) error

	// ReadButton samples the current pressed state of a button.
	ReadButton(btn Button) (bool, error)

	// Close releases the peripherals, turning all LEDs off.
	Close() error
}

var _ Board = (*Simulated)(nil)
