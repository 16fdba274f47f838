package agent

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/edgetwin/edgetwin-go/pkg/board"
	"github.com/edgetwin/edgetwin-go/pkg/persistence"
	"github.com/edgetwin/edgetwin-go/pkg/telemetry"
	"github.com/edgetwin/edgetwin-go/pkg/twin"
)

// Twin property names.
const (
	// PropBlinkRate positions the status LED's blink interval table.
	PropBlinkRate = "led1BlinkRate"

	// PropLEDOn sets the send LED's base level.
	PropLEDOn = "ledOn"

	// PropStatusText is a free-form operator note shown on the console.
	PropStatusText = "statusText"

	// PropTargetTempF is the target temperature in Fahrenheit.
	PropTargetTempF = "targetTempF"
)

// buildBindings creates the agent's twin bindings. Handlers run inside
// the dispatcher, which the run loop drives, so they may touch loop
// state through the usual accessors.
func (a *Agent) buildBindings() []*twin.Binding {
	a.bBlink = twin.NewInteger(PropBlinkRate, func(b *twin.Binding) {
		n, ok := b.Integer()
		if !ok {
			return
		}
		interval := a.applyBlinkIndex(int(n))
		a.emitEvent(Event{Type: EventDesiredApplied, Property: PropBlinkRate, Value: n})
		a.emitEvent(Event{Type: EventBlinkRateChanged, Value: interval})
	})

	a.bLED = twin.NewBoolean(PropLEDOn, func(b *twin.Binding) {
		v, ok := b.Bool()
		if !ok {
			return
		}
		a.applyLEDOn(v)
		a.emitEvent(Event{Type: EventDesiredApplied, Property: PropLEDOn, Value: v})
	})

	a.bStatus = twin.NewString(PropStatusText, func(b *twin.Binding) {
		s, ok := b.StringValue()
		if !ok {
			return
		}
		// The borrow dies with this dispatch; keep a copy.
		text := strings.Clone(s)
		a.applyStatusText(text)
		a.emitEvent(Event{Type: EventDesiredApplied, Property: PropStatusText, Value: text})
	})

	a.bTemp = twin.NewFloat(PropTargetTempF, func(b *twin.Binding) {
		f, ok := b.Float()
		if !ok {
			return
		}
		a.applyTargetTemp(f)
		a.emitEvent(Event{Type: EventDesiredApplied, Property: PropTargetTempF, Value: f})
	})

	return []*twin.Binding{a.bBlink, a.bLED, a.bStatus, a.bTemp}
}

// applyBlinkIndex repositions the blink table and wakes the run loop so
// the ticker picks up the new interval.
func (a *Agent) applyBlinkIndex(index int) time.Duration {
	interval := a.blinkTable.Set(index)
	a.notifyBlink()
	return interval
}

// applyLEDOn sets the send LED's base level. The LED itself is only
// driven when no send pulse is in flight; the pulse restores the base
// level when it expires.
func (a *Agent) applyLEDOn(on bool) {
	a.mu.Lock()
	a.led2Base = on
	a.mu.Unlock()

	if !a.sendPulse.Armed() {
		if err := a.config.Board.SetLED(board.LED2, on); err != nil {
			a.debugLog("set LED failed", "led", board.LED2.String(), "err", err)
		}
	}
}

func (a *Agent) applyStatusText(text string) {
	a.mu.Lock()
	a.statusText = text
	a.mu.Unlock()
}

func (a *Agent) applyTargetTemp(f float32) {
	a.mu.Lock()
	a.targetTempF = f
	a.mu.Unlock()
}

// notifyBlink wakes the run loop to re-arm the blink ticker.
func (a *Agent) notifyBlink() {
	select {
	case a.blinkChanged <- struct{}{}:
	default:
	}
}

// reportAll reports every binding's current runtime value.
func (a *Agent) reportAll(ctx context.Context) {
	a.mu.RLock()
	ledOn, status, temp := a.led2Base, a.statusText, a.targetTempF
	a.mu.RUnlock()

	a.reportValue(ctx, a.bBlink, int64(a.blinkTable.Index()))
	a.reportValue(ctx, a.bLED, ledOn)
	a.reportValue(ctx, a.bStatus, status)
	a.reportValue(ctx, a.bTemp, temp)
}

func (a *Agent) reportValue(ctx context.Context, b *twin.Binding, v any) {
	if err := a.reporter.ReportValue(ctx, b, v); err != nil {
		a.logError("report "+b.Property(), err)
		a.debugLog("report failed", "property", b.Property(), "err", err)
	}
}

// restoreState loads persisted agent state before the run loop starts.
func (a *Agent) restoreState() error {
	if a.config.StateStore == nil {
		return nil
	}

	state, err := a.config.StateStore.Load()
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	a.encoder = telemetry.NewEncoderAt(state.MsgID)
	a.blinkTable.Set(state.BlinkIndex)

	for prop, rv := range state.Reported {
		switch prop {
		case PropLEDOn:
			if v, err := strconv.ParseBool(rv.Value); err == nil {
				a.led2Base = v
			}
		case PropStatusText:
			a.statusText = rv.Value
		case PropTargetTempF:
			if f, err := strconv.ParseFloat(rv.Value, 32); err == nil {
				a.targetTempF = float32(f)
			}
		}
	}

	a.debugLog("state restored",
		"msgID", state.MsgID,
		"blinkIndex", state.BlinkIndex,
		"properties", len(state.Reported))
	return nil
}

// saveState persists the agent's runtime state. Failures are logged and
// otherwise ignored; a missed save costs at most one restart's worth of
// continuity.
func (a *Agent) saveState() {
	if a.config.StateStore == nil {
		return
	}

	a.mu.RLock()
	ledOn, status, temp := a.led2Base, a.statusText, a.targetTempF
	a.mu.RUnlock()

	now := time.Now()
	index := a.blinkTable.Index()
	state := &persistence.AgentState{
		DeviceID:   a.config.DeviceID,
		MsgID:      a.encoder.NextID(),
		BlinkIndex: index,
		Reported: map[string]persistence.ReportedValue{
			PropBlinkRate: {
				Kind:       twin.KindInteger.String(),
				Value:      strconv.Itoa(index),
				ReportedAt: now,
			},
			PropLEDOn: {
				Kind:       twin.KindBoolean.String(),
				Value:      strconv.FormatBool(ledOn),
				ReportedAt: now,
			},
			PropStatusText: {
				Kind:       twin.KindString.String(),
				Value:      status,
				ReportedAt: now,
			},
			PropTargetTempF: {
				Kind:       twin.KindFloat.String(),
				Value:      strconv.FormatFloat(float64(temp), 'f', -1, 32),
				ReportedAt: now,
			},
		},
	}

	if err := a.config.StateStore.Save(state); err != nil {
		a.debugLog("save state failed", "err", err)
	}
}
