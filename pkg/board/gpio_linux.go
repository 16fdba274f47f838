//go:build linux && !nogpio

package board

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// gpioBoard drives real pins through periph.io.
type gpioBoard struct {
	pins      GPIOPins
	leds      map[LED]gpio.PinIO
	buttons   map[Button]gpio.PinIO
	activeLow bool
}

// NewGPIO opens the configured pins. It fails with ErrGPIOUnavailable
// when the host has no GPIO, and with a detailed error when a named
// pin cannot be found or configured.
func NewGPIO(pins GPIOPins) (Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGPIOUnavailable, err)
	}

	b := &gpioBoard{
		pins:      pins,
		leds:      make(map[LED]gpio.PinIO, 3),
		buttons:   make(map[Button]gpio.PinIO, 2),
		activeLow: pins.ActiveLowLEDs,
	}

	ledPins := map[LED]string{
		LED1:       pins.LED1,
		LED2:       pins.LED2,
		NetworkLED: pins.NetworkLED,
	}
	for led, name := range ledPins {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("board: LED pin %q not found", name)
		}
		if err := p.Out(b.level(false)); err != nil {
			return nil, fmt.Errorf("board: configuring LED pin %q: %w", name, err)
		}
		b.leds[led] = p
	}

	buttonPins := map[Button]string{
		ButtonA: pins.ButtonA,
		ButtonB: pins.ButtonB,
	}
	for btn, name := range buttonPins {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("board: button pin %q not found", name)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("board: configuring button pin %q: %w", name, err)
		}
		b.buttons[btn] = p
	}

	return b, nil
}

// SetLED drives an LED pin.
func (b *gpioBoard) SetLED(led LED, on bool) error {
	p, ok := b.leds[led]
	if !ok {
		return fmt.Errorf("board: unknown LED %s", led)
	}
	return p.Out(b.level(on))
}

// ReadButton samples a button pin. Pressed pulls the pin to ground.
func (b *gpioBoard) ReadButton(btn Button) (bool, error) {
	p, ok := b.buttons[btn]
	if !ok {
		return false, fmt.Errorf("board: unknown button %s", btn)
	}
	return p.Read() == gpio.Low, nil
}

// Close turns all LEDs off.
func (b *gpioBoard) Close() error {
	var firstErr error
	for _, p := range b.leds {
		if err := p.Out(b.level(false)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *gpioBoard) level(on bool) gpio.Level {
	if b.activeLow {
		return gpio.Level(!on)
	}
	return gpio.Level(on)
}
