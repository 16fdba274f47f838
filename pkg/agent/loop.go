package agent

import (
	"context"
	"time"

	"github.com/edgetwin/edgetwin-go/pkg/board"
	"github.com/edgetwin/edgetwin-go/pkg/log"
)

// run is the agent's single event loop. Every binding mutation, LED
// write and report happens on this goroutine.
func (a *Agent) run() {
	defer close(a.done)

	blinkTicker := time.NewTicker(a.blinkTable.Current())
	defer blinkTicker.Stop()

	buttonTicker := time.NewTicker(a.config.ButtonPoll)
	defer buttonTicker.Stop()

	networkTicker := time.NewTicker(a.config.NetworkCheck)
	defer networkTicker.Stop()

	// A nil channel never delivers, which disables the telemetry case.
	var telemetryC <-chan time.Time
	if a.config.TelemetryEnabled {
		telemetryTicker := time.NewTicker(a.config.TelemetryInterval)
		defer telemetryTicker.Stop()
		telemetryC = telemetryTicker.C
	}

	// Seed the network LED and boot sync without waiting a full period.
	a.checkNetwork(a.ctx)

	for {
		select {
		case <-a.ctx.Done():
			return

		case <-blinkTicker.C:
			a.blinkTick()

		case <-buttonTicker.C:
			a.pollButtons(a.ctx)

		case <-networkTicker.C:
			a.checkNetwork(a.ctx)

		case <-telemetryC:
			a.sendTelemetry(a.ctx)

		case payload := <-a.desiredCh:
			a.handleDesired(a.ctx, payload)

		case fn := <-a.cmdCh:
			fn(a.ctx)
		}

		// Pick up blink interval changes from any of the cases above.
		select {
		case <-a.blinkChanged:
			blinkTicker.Reset(a.blinkTable.Current())
		default:
		}
	}
}

// blinkTick toggles the status LED.
func (a *Agent) blinkTick() {
	a.blinkOn = !a.blinkOn
	if err := a.config.Board.SetLED(board.LED1, a.blinkOn); err != nil {
		a.debugLog("set LED failed", "led", board.LED1.String(), "err", err)
	}
}

// pollButtons samples the buttons and acts on new presses.
func (a *Agent) pollButtons(ctx context.Context) {
	presses, err := a.poller.Poll()
	if err != nil {
		a.debugLog("button poll failed", "err", err)
		return
	}

	for _, btn := range presses {
		a.emitEvent(Event{Type: EventButtonPressed, Value: btn})
		switch btn {
		case board.ButtonA:
			a.cycleBlinkRate(ctx)
		case board.ButtonB:
			a.requestTwin(ctx)
		}
	}
}

// checkNetwork refreshes the connectivity LED and, on the first
// successful connection, reports full state and asks for the staged
// desired document.
func (a *Agent) checkNetwork(ctx context.Context) {
	up := a.config.Transport.Connected()

	a.mu.Lock()
	changed := up != a.networkUp
	a.networkUp = up
	bootSync := up && !a.bootSynced
	if bootSync {
		a.bootSynced = true
	}
	a.mu.Unlock()

	if changed {
		if err := a.config.Board.SetLED(board.NetworkLED, up); err != nil {
			a.debugLog("set LED failed", "led", board.NetworkLED.String(), "err", err)
		}

		oldState, newState := "Connected", "Disconnected"
		if up {
			oldState, newState = "Disconnected", "Connected"
		}
		a.logProtocol(log.Event{
			Timestamp: time.Now(),
			DeviceID:  a.config.DeviceID,
			Direction: log.DirectionOut,
			Layer:     log.LayerAgent,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityTransport,
				OldState: oldState,
				NewState: newState,
			},
		})
		a.emitEvent(Event{Type: EventConnectivityChanged, Value: up})
	}

	if bootSync {
		a.reportAll(ctx)
		a.requestTwin(ctx)
	}
}

// sendTelemetry reads the sensor, publishes the document and pulses the
// send LED. A device that cannot reach the hub skips the read entirely.
func (a *Agent) sendTelemetry(ctx context.Context) {
	if !a.config.Transport.Connected() {
		a.debugLog("telemetry skipped", "reason", "not connected")
		return
	}

	sample, err := a.config.Sensor.Read()
	if err != nil {
		a.logError("read sensor", err)
		a.debugLog("sensor read failed", "err", err)
		return
	}

	id := a.encoder.NextID()
	payload, err := a.encoder.Encode(sample)
	if err != nil {
		a.logError("encode telemetry", err)
		return
	}

	if err := a.config.Transport.SendTelemetry(ctx, payload); err != nil {
		a.logError("send telemetry", err)
		return
	}

	a.startSendPulse()
	a.saveState()

	a.logProtocol(log.Event{
		Timestamp: time.Now(),
		DeviceID:  a.config.DeviceID,
		Direction: log.DirectionOut,
		Layer:     log.LayerAgent,
		Category:  log.CategoryTelemetry,
		Telemetry: &log.TelemetryEvent{
			MsgID: id,
			Size:  len(payload),
		},
	})
	a.emitEvent(Event{Type: EventTelemetrySent, Value: id})
}

// startSendPulse lights the send LED and arms the off timer.
func (a *Agent) startSendPulse() {
	if err := a.config.Board.SetLED(board.LED2, true); err != nil {
		a.debugLog("set LED failed", "led", board.LED2.String(), "err", err)
	}
	a.sendPulse.Arm(a.config.SendPulse)
}

// endSendPulse restores the send LED to its base level. Runs on the
// one-shot's timer goroutine.
func (a *Agent) endSendPulse() {
	if err := a.config.Board.SetLED(board.LED2, a.LEDOn()); err != nil {
		a.debugLog("set LED failed", "led", board.LED2.String(), "err", err)
	}
}

// handleDesired runs one inbound document through the dispatcher and
// persists whatever it changed.
func (a *Agent) handleDesired(ctx context.Context, payload []byte) {
	a.dispatcher.HandleDesiredState(ctx, payload)
	a.saveState()
}

// cycleBlinkRate advances the blink table and reports the new position.
func (a *Agent) cycleBlinkRate(ctx context.Context) {
	interval := a.blinkTable.Cycle()
	a.notifyBlink()
	a.reportValue(ctx, a.bBlink, int64(a.blinkTable.Index()))
	a.saveState()
	a.emitEvent(Event{Type: EventBlinkRateChanged, Value: interval})
}

// setBlinkRate repositions the blink table and reports the new position.
func (a *Agent) setBlinkRate(ctx context.Context, index int) {
	interval := a.applyBlinkIndex(index)
	a.reportValue(ctx, a.bBlink, int64(a.blinkTable.Index()))
	a.saveState()
	a.emitEvent(Event{Type: EventBlinkRateChanged, Value: interval})
}

// applyLEDOnCmd is the console path for the send LED: apply, report,
// persist.
func (a *Agent) applyLEDOnCmd(ctx context.Context, on bool) {
	a.applyLEDOn(on)
	a.reportValue(ctx, a.bLED, on)
	a.saveState()
}

// applyStatusTextCmd is the console path for the status text.
func (a *Agent) applyStatusTextCmd(ctx context.Context, text string) {
	a.applyStatusText(text)
	a.reportValue(ctx, a.bStatus, text)
	a.saveState()
}

// applyTargetTempCmd is the console path for the target temperature.
func (a *Agent) applyTargetTempCmd(ctx context.Context, value float32) {
	a.applyTargetTemp(value)
	a.reportValue(ctx, a.bTemp, value)
	a.saveState()
}

// requestTwin asks the hub to redeliver the staged desired document for
// the registered properties.
func (a *Agent) requestTwin(ctx context.Context) {
	props := make([]string, 0, a.registry.Len())
	for _, b := range a.registry.Bindings() {
		props = append(props, b.Property())
	}

	if err := a.config.Transport.RequestTwin(ctx, props); err != nil {
		a.logError("request twin", err)
		return
	}
	a.emitEvent(Event{Type: EventTwinRequested})
}
