//go:build !linux || nogpio

package board

// NewGPIO is unavailable without Linux GPIO support.
func NewGPIO(GPIOPins) (Board, error) {
	return nil, ErrGPIOUnavailable
}
