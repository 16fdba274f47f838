package board

// ButtonPoller turns sampled button levels into press events. A press
// is reported once, on the not-pressed to pressed transition.
type ButtonPoller struct {
	board   Board
	buttons []Button
	last    map[Button]bool
}

// NewButtonPoller creates a poller over the given buttons.
func NewButtonPoller(b Board, buttons ...Button) *ButtonPoller {
	last := make(map[Button]bool, len(buttons))
	for _, btn := range buttons {
		last[btn] = false
	}
	return &ButtonPoller{board: b, buttons: buttons, last: last}
}

// Poll samples every watched button and returns those that transitioned
// to pressed since the previous call.
func (p *ButtonPoller) Poll() ([]Button, error) {
	var pressed []Button
	for _, btn := range p.buttons {
		now, err := p.board.ReadButton(btn)
		if err != nil {
			return nil, err
		}
		if now && !p.last[btn] {
			pressed = append(pressed, btn)
		}
		p.last[btn] = now
	}
	return pressed, nil
}
