package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgetwin/edgetwin-go/pkg/board"
	"github.com/edgetwin/edgetwin-go/pkg/log"
	"github.com/edgetwin/edgetwin-go/pkg/schedule"
	"github.com/edgetwin/edgetwin-go/pkg/telemetry"
	"github.com/edgetwin/edgetwin-go/pkg/twin"
	"github.com/edgetwin/edgetwin-go/pkg/version"
)

// Channel capacities for the run loop funnels. Inbound desired-state
// documents beyond the buffer are dropped and counted; commands beyond
// the buffer fail with ErrBusy.
const (
	inboundBuffer = 8
	commandBuffer = 16
)

// Agent orchestrates one edgetwin device.
type Agent struct {
	mu sync.RWMutex

	config Config
	state  State

	// Twin plumbing. Stop closes the registry; a restart rebuilds it.
	registry   *twin.Registry
	reporter   *twin.Reporter
	dispatcher *twin.Dispatcher

	bBlink  *twin.Binding
	bLED    *twin.Binding
	bStatus *twin.Binding
	bTemp   *twin.Binding

	// Board plumbing
	blinkTable *schedule.Table
	sendPulse  *schedule.OneShot
	poller     *board.ButtonPoller

	// Telemetry
	encoder *telemetry.Encoder

	// Runtime twin state mirrored for persistence and the console
	led2Base    bool
	statusText  string
	targetTempF float32

	// Connectivity tracking
	networkUp  bool
	bootSynced bool

	// Status LED level, touched only by the run loop
	blinkOn bool

	// Run loop funnels
	desiredCh    chan []byte
	cmdCh        chan func(context.Context)
	blinkChanged chan struct{}

	// Inbound documents dropped because the funnel was full
	inboundDropped atomic.Uint64

	// Event handlers
	eventHandlers []EventHandler

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAgent creates a new agent. The registry, bindings and schedule are
// built here; nothing runs until Start.
func NewAgent(config Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &Agent{
		config:       config,
		state:        StateIdle,
		blinkTable:   schedule.NewBlinkTable(),
		encoder:      telemetry.NewEncoder(),
		poller:       board.NewButtonPoller(config.Board, board.ButtonA, board.ButtonB),
		desiredCh:    make(chan []byte, inboundBuffer),
		cmdCh:        make(chan func(context.Context), commandBuffer),
		blinkChanged: make(chan struct{}, 1),
	}
	a.sendPulse = schedule.NewOneShot(a.endSendPulse)

	if err := a.buildTwin(); err != nil {
		return nil, err
	}

	return a, nil
}

// buildTwin allocates the twin registry, bindings, reporter and
// dispatcher. The registry's lifetime bounds one run: Stop closes it and
// the next Start builds a fresh one.
func (a *Agent) buildTwin() error {
	registry, err := twin.NewRegistry(a.buildBindings()...)
	if err != nil {
		return fmt.Errorf("building twin registry: %w", err)
	}
	a.registry = registry
	a.reporter = twin.NewReporter(a.config.Transport, a.config.ProtocolLogger)
	a.dispatcher = twin.NewDispatcher(registry, a.reporter, a.config.ProtocolLogger)
	return nil
}

// State returns the current agent state.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// DeviceID returns the agent's device identifier.
func (a *Agent) DeviceID() string {
	return a.config.DeviceID
}

// OnEvent registers an event handler.
func (a *Agent) OnEvent(handler EventHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.eventHandlers = append(a.eventHandlers, handler)
}

// BlinkInterval returns the current status LED interval.
func (a *Agent) BlinkInterval() time.Duration {
	return a.blinkTable.Current()
}

// BlinkIndex returns the current position in the blink interval table.
func (a *Agent) BlinkIndex() int {
	return a.blinkTable.Index()
}

// StatusText returns the last applied statusText value.
func (a *Agent) StatusText() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.statusText
}

// TargetTempF returns the last applied targetTempF value.
func (a *Agent) TargetTempF() float32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.targetTempF
}

// LEDOn returns the send LED's base level.
func (a *Agent) LEDOn() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.led2Base
}

// NetworkUp reports hub connectivity as of the last check.
func (a *Agent) NetworkUp() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.networkUp
}

// NextMsgID returns the telemetry sequence watermark.
func (a *Agent) NextMsgID() int {
	return a.encoder.NextID()
}

// TwinStats returns the dispatch counters.
func (a *Agent) TwinStats() twin.Stats {
	return a.dispatcher.Stats()
}

// InboundDropped returns how many desired-state documents were dropped
// because the agent could not keep up.
func (a *Agent) InboundDropped() uint64 {
	return a.inboundDropped.Load()
}

// Start starts the agent.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateIdle && a.state != StateStopped {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	restart := a.state == StateStopped
	a.state = StateStarting
	a.mu.Unlock()

	// On failure fall back to the state Start was entered from, so a
	// later attempt still knows whether the registry needs rebuilding.
	rollback := StateIdle
	if restart {
		rollback = StateStopped
		if err := a.buildTwin(); err != nil {
			a.setState(rollback)
			return err
		}
		a.mu.Lock()
		a.networkUp = false
		a.bootSynced = false
		a.mu.Unlock()
	}

	if err := a.restoreState(); err != nil {
		a.setState(rollback)
		return fmt.Errorf("restoring state: %w", err)
	}

	if a.config.Manifest != nil {
		if err := a.validateBindings(a.config.Manifest); err != nil {
			a.setState(rollback)
			return err
		}
	}

	a.ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	a.config.Transport.SetDesiredStateHandler(a.onDesiredState)

	// Connection failures at startup are not fatal: the transport
	// reconnects in the background and the first connectivity check
	// completes the boot sync.
	if err := a.config.Transport.Connect(a.ctx); err != nil {
		a.debugLog("startup connect failed", "err", err)
		a.logError("connect", err)
	}

	// Restore the send LED's base level before the loop takes over.
	if err := a.config.Board.SetLED(board.LED2, a.led2Base); err != nil {
		a.debugLog("set LED failed", "led", board.LED2.String(), "err", err)
	}

	go a.run()

	a.setState(StateRunning)
	a.logStateChange(StateStarting, StateRunning, "started")
	return nil
}

// Stop stops the agent. The run loop is drained, final state is saved
// and the LEDs are turned off. The transport and board stay open; they
// belong to the caller.
func (a *Agent) Stop() error {
	a.mu.Lock()
	if a.state != StateRunning {
		a.mu.Unlock()
		return ErrNotStarted
	}
	a.state = StateStopping
	a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}
	<-a.done

	a.sendPulse.Cancel()
	a.saveState()

	for _, led := range []board.LED{board.LED1, board.LED2, board.NetworkLED} {
		if err := a.config.Board.SetLED(led, false); err != nil {
			a.debugLog("set LED failed", "led", led.String(), "err", err)
		}
	}

	a.registry.Close()

	a.setState(StateStopped)
	a.logStateChange(StateStopping, StateStopped, "stopped")
	return nil
}

// CycleBlinkRate advances the status LED to the next interval and
// reports the new position.
func (a *Agent) CycleBlinkRate() error {
	return a.do(func(ctx context.Context) {
		a.cycleBlinkRate(ctx)
	})
}

// SetBlinkRate positions the status LED interval table and reports the
// new position. Out-of-range indices wrap.
func (a *Agent) SetBlinkRate(index int) error {
	return a.do(func(ctx context.Context) {
		a.setBlinkRate(ctx, index)
	})
}

// SetLEDOn sets the send LED's base level and reports it.
func (a *Agent) SetLEDOn(on bool) error {
	return a.do(func(ctx context.Context) {
		a.applyLEDOnCmd(ctx, on)
	})
}

// SetStatusText sets the status text and reports it.
func (a *Agent) SetStatusText(text string) error {
	return a.do(func(ctx context.Context) {
		a.applyStatusTextCmd(ctx, text)
	})
}

// SetTargetTempF sets the target temperature and reports it.
func (a *Agent) SetTargetTempF(value float32) error {
	return a.do(func(ctx context.Context) {
		a.applyTargetTempCmd(ctx, value)
	})
}

// ReportState re-reports every binding's current value.
func (a *Agent) ReportState() error {
	return a.do(func(ctx context.Context) {
		a.reportAll(ctx)
	})
}

// RequestTwin asks the hub to redeliver the staged desired document.
func (a *Agent) RequestTwin() error {
	return a.do(func(ctx context.Context) {
		a.requestTwin(ctx)
	})
}

// SendTelemetry triggers one telemetry read and publish outside the
// regular interval.
func (a *Agent) SendTelemetry() error {
	if a.config.Sensor == nil {
		return ErrInvalidConfig
	}
	return a.do(func(ctx context.Context) {
		a.sendTelemetry(ctx)
	})
}

// do funnels a command into the run loop.
func (a *Agent) do(fn func(context.Context)) error {
	a.mu.RLock()
	running := a.state == StateRunning
	a.mu.RUnlock()
	if !running {
		return ErrNotStarted
	}

	select {
	case a.cmdCh <- fn:
		return nil
	default:
		return ErrBusy
	}
}

// onDesiredState receives inbound documents on the transport's
// goroutine and funnels them into the run loop. The payload is copied
// because the transport may reuse its buffer.
func (a *Agent) onDesiredState(payload []byte) {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	select {
	case a.desiredCh <- buf:
	default:
		a.inboundDropped.Add(1)
		a.logProtocol(log.Event{
			Timestamp: time.Now(),
			DeviceID:  a.config.DeviceID,
			Direction: log.DirectionIn,
			Layer:     log.LayerAgent,
			Category:  log.CategoryTwin,
			Twin: &log.TwinEvent{
				Action: log.TwinDropped,
				Reason: "inbound queue full",
			},
		})
	}
}

// validateBindings checks the registry against the twin property
// manifest. Unknown properties are warnings; missing mandatory
// properties and kind mismatches refuse startup.
func (a *Agent) validateBindings(m *version.Manifest) error {
	bound := make([]version.BoundProperty, 0, a.registry.Len())
	for _, b := range a.registry.Bindings() {
		bound = append(bound, version.BoundProperty{
			Name: b.Property(),
			Kind: b.Kind().String(),
		})
	}

	result := version.ValidateBindings(m, bound)
	for _, w := range result.Warnings {
		a.debugLog("binding validation warning", "warning", w)
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(result.Errors, "; "))
	}
	return nil
}

// setState transitions the lifecycle state.
func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// emitEvent fans an event out to the registered handlers.
func (a *Agent) emitEvent(event Event) {
	a.mu.RLock()
	handlers := a.eventHandlers
	a.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}

// debugLog logs a debug message if logging is enabled.
func (a *Agent) debugLog(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, args...)
	}
}

// logProtocol captures a structured protocol event if enabled.
func (a *Agent) logProtocol(event log.Event) {
	if a.config.ProtocolLogger != nil {
		a.config.ProtocolLogger.Log(event)
	}
}

// logError captures an agent-layer error event.
func (a *Agent) logError(context string, err error) {
	a.logProtocol(log.Event{
		Timestamp: time.Now(),
		DeviceID:  a.config.DeviceID,
		Direction: log.DirectionOut,
		Layer:     log.LayerAgent,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerAgent,
			Message: err.Error(),
			Context: context,
		},
	})
}

// logStateChange captures an agent lifecycle transition.
func (a *Agent) logStateChange(from, to State, reason string) {
	a.logProtocol(log.Event{
		Timestamp: time.Now(),
		DeviceID:  a.config.DeviceID,
		Direction: log.DirectionOut,
		Layer:     log.LayerAgent,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityAgent,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}
