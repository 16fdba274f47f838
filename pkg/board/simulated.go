package board

import "sync"

// Simulated is an in-memory board. LEDs can be inspected and buttons
// driven from tests and the interactive console.
type Simulated struct {
	mu     sync.Mutex
	leds   map[LED]bool
	held   map[Button]bool
	tapped map[Button]bool
}

// NewSimulated creates a simulated board with all LEDs off.
func NewSimulated() *Simulated {
	return &Simulated{
		leds:   make(map[LED]bool),
		held:   make(map[Button]bool),
		tapped: make(map[Button]bool),
	}
}

// SetLED drives a simulated LED.
func (s *Simulated) SetLED(led LED, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leds[led] = on
	return nil
}

// ReadButton samples a simulated button. A Tap is consumed by the
// first read that observes it.
func (s *Simulated) ReadButton(btn Button) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[btn] {
		return true, nil
	}
	if s.tapped[btn] {
		s.tapped[btn] = false
		return true, nil
	}
	return false, nil
}

// Close turns all LEDs off.
func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for led := range s.leds {
		s.leds[led] = false
	}
	return nil
}

// LEDState reports whether a simulated LED is lit.
func (s *Simulated) LEDState(led LED) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leds[led]
}

// Tap registers a button press shorter than one poll period: the next
// ReadButton returns pressed exactly once.
func (s *Simulated) Tap(btn Button) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tapped[btn] = true
}

// SetPressed holds or releases a button.
func (s *Simulated) SetPressed(btn Button, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[btn] = pressed
}
