package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/edgetwin/edgetwin-go/pkg/agent"
	"github.com/edgetwin/edgetwin-go/pkg/board"
	"github.com/edgetwin/edgetwin-go/pkg/transport"
)

// console is the interactive operator shell. loopback is non-nil only
// in offline mode, sim only when the simulated board backend is in use.
type console struct {
	agent    *agent.Agent
	loopback *transport.Loopback
	sim      *board.Simulated

	rl *readline.Instance
}

func newConsole(a *agent.Agent, loopback *transport.Loopback, sim *board.Simulated) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "agent> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &console{
		agent:    a,
		loopback: loopback,
		sim:      sim,
		rl:       rl,
	}
	a.OnEvent(c.handleEvent)
	return c, nil
}

// Run processes console commands until the context is cancelled or the
// user exits.
func (c *console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()
		case "state", "status":
			c.printState()
		case "get", "g":
			c.printProperties()
		case "set", "s":
			c.handleSet(args)
		case "blink":
			c.report(c.agent.CycleBlinkRate())
		case "report":
			c.report(c.agent.ReportState())
		case "sync":
			c.report(c.agent.RequestTwin())
		case "telemetry", "t":
			c.report(c.agent.SendTelemetry())
		case "desire":
			c.handleDesire(args)
		case "press":
			c.handlePress(args)
		case "stats":
			c.printStats()
		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), "Commands:")
	fmt.Fprintln(c.rl.Stdout(), "  state                  Show agent state")
	fmt.Fprintln(c.rl.Stdout(), "  get                    Show the reported twin properties")
	fmt.Fprintln(c.rl.Stdout(), "  set <prop> <value>     Set a twin property locally")
	fmt.Fprintln(c.rl.Stdout(), "  blink                  Cycle the status LED blink rate")
	fmt.Fprintln(c.rl.Stdout(), "  report                 Report all properties to the hub")
	fmt.Fprintln(c.rl.Stdout(), "  sync                   Request the desired twin document")
	fmt.Fprintln(c.rl.Stdout(), "  telemetry              Send a telemetry document now")
	if c.loopback != nil {
		fmt.Fprintln(c.rl.Stdout(), "  desire <json>          Inject a desired document (offline mode)")
	}
	if c.sim != nil {
		fmt.Fprintln(c.rl.Stdout(), "  press a|b              Press a simulated board button")
	}
	fmt.Fprintln(c.rl.Stdout(), "  stats                  Show twin dispatch counters")
	fmt.Fprintln(c.rl.Stdout(), "  quit                   Exit")
}

func (c *console) printState() {
	out := c.rl.Stdout()
	network := "down"
	if c.agent.NetworkUp() {
		network = "up"
	}
	fmt.Fprintf(out, "Device ID:      %s\n", c.agent.DeviceID())
	fmt.Fprintf(out, "State:          %s\n", c.agent.State())
	fmt.Fprintf(out, "Network:        %s\n", network)
	fmt.Fprintf(out, "Blink interval: %v (index %d)\n", c.agent.BlinkInterval(), c.agent.BlinkIndex())
	fmt.Fprintf(out, "Next MsgId:     %d\n", c.agent.NextMsgID())
}

func (c *console) printProperties() {
	out := c.rl.Stdout()
	fmt.Fprintf(out, "%s = %d\n", agent.PropBlinkRate, c.agent.BlinkIndex())
	fmt.Fprintf(out, "%s = %t\n", agent.PropLEDOn, c.agent.LEDOn())
	fmt.Fprintf(out, "%s = %q\n", agent.PropStatusText, c.agent.StatusText())
	fmt.Fprintf(out, "%s = %.1f\n", agent.PropTargetTempF, c.agent.TargetTempF())
}

func (c *console) handleSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: set <prop> <value>")
		return
	}

	prop, raw := args[0], strings.Join(args[1:], " ")
	switch prop {
	case agent.PropBlinkRate:
		index, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid index: %s\n", raw)
			return
		}
		c.report(c.agent.SetBlinkRate(index))
	case agent.PropLEDOn:
		on, err := strconv.ParseBool(raw)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid boolean: %s\n", raw)
			return
		}
		c.report(c.agent.SetLEDOn(on))
	case agent.PropStatusText:
		c.report(c.agent.SetStatusText(strings.Trim(raw, `"'`)))
	case agent.PropTargetTempF:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid temperature: %s\n", raw)
			return
		}
		c.report(c.agent.SetTargetTempF(float32(f)))
	default:
		fmt.Fprintf(c.rl.Stdout(), "Unknown property: %s (one of %s, %s, %s, %s)\n",
			prop, agent.PropBlinkRate, agent.PropLEDOn, agent.PropStatusText, agent.PropTargetTempF)
	}
}

func (c *console) handleDesire(args []string) {
	if c.loopback == nil {
		fmt.Fprintln(c.rl.Stdout(), "desire is only available in offline mode")
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), `Usage: desire {"ledOn":{"value":true}}`)
		return
	}
	c.loopback.PushDesired([]byte(strings.Join(args, " ")))
}

func (c *console) handlePress(args []string) {
	if c.sim == nil {
		fmt.Fprintln(c.rl.Stdout(), "press needs the simulated board backend")
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: press a|b")
		return
	}
	switch strings.ToLower(args[0]) {
	case "a":
		c.sim.Tap(board.ButtonA)
	case "b":
		c.sim.Tap(board.ButtonB)
	default:
		fmt.Fprintf(c.rl.Stdout(), "Unknown button: %s\n", args[0])
	}
}

func (c *console) printStats() {
	out := c.rl.Stdout()
	stats := c.agent.TwinStats()
	fmt.Fprintf(out, "Documents handled:  %d\n", stats.DocumentsHandled)
	fmt.Fprintf(out, "Documents dropped:  %d\n", stats.DocumentsDropped)
	fmt.Fprintf(out, "Properties applied: %d\n", stats.PropertiesApplied)
	fmt.Fprintf(out, "Properties ignored: %d\n", stats.PropertiesIgnored)
	fmt.Fprintf(out, "Inbound dropped:    %d\n", c.agent.InboundDropped())
}

// report prints a command error, if any. Agent commands are best
// effort from the console; errors never kill the shell.
func (c *console) report(err error) {
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
	}
}

func (c *console) handleEvent(event agent.Event) {
	out := c.rl.Stdout()
	switch event.Type {
	case agent.EventConnectivityChanged:
		if up, ok := event.Value.(bool); ok && up {
			fmt.Fprintln(out, "[EVENT] Hub connected")
		} else {
			fmt.Fprintln(out, "[EVENT] Hub disconnected")
		}
	case agent.EventButtonPressed:
		fmt.Fprintf(out, "[EVENT] Button pressed: %v\n", event.Value)
	case agent.EventBlinkRateChanged:
		fmt.Fprintf(out, "[EVENT] Blink interval now %v\n", event.Value)
	case agent.EventDesiredApplied:
		fmt.Fprintf(out, "[EVENT] Desired %s applied: %v\n", event.Property, event.Value)
	case agent.EventTelemetrySent:
		fmt.Fprintf(out, "[EVENT] Telemetry sent (MsgId %v)\n", event.Value)
	case agent.EventTwinRequested:
		fmt.Fprintln(out, "[EVENT] Twin document requested")
	}
}
