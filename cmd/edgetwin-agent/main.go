// Command edgetwin-agent runs an edgetwin device agent.
//
// The agent connects a small sensor board to its device twin on the
// hub: desired properties arrive over MQTT and are applied to the
// board, reported state and telemetry flow back out. Agent state
// survives restarts through a JSON state file, and the device
// announces itself on the LAN over mDNS.
//
// Usage:
//
//	edgetwin-agent [flags]
//
// Flags:
//
//	-config string     Configuration file path (YAML)
//	-device-id string  Device identity (persisted identity is used if empty)
//	-broker string     Broker URL, e.g. tcp://hub.example.com:1883
//	-state-dir string  Directory for persisted state (default ".")
//	-board string      Board backend: auto, gpio, simulated (default "auto")
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-event-log string  Protocol event log file (.etlog)
//	-manifest string   Twin manifest version to validate against (default current)
//	-offline           Run without a broker on the in-memory loopback transport
//	-console           Run the interactive console
//
// Examples:
//
//	# Connect to a hub, deriving credentials from the fleet enrollment key
//	EDGETWIN_ENROLLMENT_KEY=... edgetwin-agent -broker tcp://hub.local:1883
//
//	# Run fully local with the interactive console
//	edgetwin-agent -offline -console -board simulated
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edgetwin/edgetwin-go/pkg/agent"
	"github.com/edgetwin/edgetwin-go/pkg/board"
	"github.com/edgetwin/edgetwin-go/pkg/config"
	"github.com/edgetwin/edgetwin-go/pkg/discovery"
	etlog "github.com/edgetwin/edgetwin-go/pkg/log"
	"github.com/edgetwin/edgetwin-go/pkg/persistence"
	"github.com/edgetwin/edgetwin-go/pkg/provision"
	"github.com/edgetwin/edgetwin-go/pkg/sensor"
	"github.com/edgetwin/edgetwin-go/pkg/transport"
	"github.com/edgetwin/edgetwin-go/pkg/version"
)

// File names under the state directory.
const (
	stateFileName    = "agent-state.json"
	identityFileName = "device-id"
)

type cliFlags struct {
	ConfigFile string
	DeviceID   string
	Broker     string
	StateDir   string
	Board      string
	LogLevel   string
	EventLog   string
	Manifest   string
	Offline    bool
	Console    bool
}

var cli cliFlags

func init() {
	flag.StringVar(&cli.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&cli.DeviceID, "device-id", "", "Device identity (persisted identity is used if empty)")
	flag.StringVar(&cli.Broker, "broker", "", "Broker URL, e.g. tcp://hub.example.com:1883")
	flag.StringVar(&cli.StateDir, "state-dir", "", "Directory for persisted state")
	flag.StringVar(&cli.Board, "board", "", "Board backend: auto, gpio, simulated")
	flag.StringVar(&cli.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&cli.EventLog, "event-log", "", "Protocol event log file (.etlog)")
	flag.StringVar(&cli.Manifest, "manifest", "", "Twin manifest version to validate against")
	flag.BoolVar(&cli.Offline, "offline", false, "Run without a broker on the in-memory loopback transport")
	flag.BoolVar(&cli.Console, "console", false, "Run the interactive console")
}

func main() {
	flag.Parse()

	cfg, err := resolveConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(cfg.Log.Level)

	log.Println("edgetwin agent")
	log.Printf("Agent version: %s", version.Current)

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		log.Fatalf("Creating state directory: %v", err)
	}

	deviceID, err := resolveDeviceID(cfg)
	if err != nil {
		log.Fatalf("Resolving device identity: %v", err)
	}
	log.Printf("Device ID: %s", deviceID)

	slogger := newSlogger(cfg.Log.Level)

	events, closeEvents, err := buildEventLogger(cfg, slogger)
	if err != nil {
		log.Fatalf("Opening event log: %v", err)
	}

	tr, loopback, err := buildTransport(cfg, deviceID, events)
	if err != nil {
		log.Fatalf("Building transport: %v", err)
	}

	bd, backend, err := openBoard(cfg.Board)
	if err != nil {
		log.Fatalf("Opening board: %v", err)
	}
	log.Printf("Board backend: %s", backend)

	manifestVer := cli.Manifest
	if manifestVer == "" {
		manifestVer = version.Current
	}
	manifest, err := version.LoadManifest(manifestVer)
	if err != nil {
		log.Fatalf("Loading manifest %s: %v", manifestVer, err)
	}

	agentCfg := agent.DefaultConfig()
	agentCfg.DeviceID = deviceID
	agentCfg.Transport = tr
	agentCfg.Board = bd
	agentCfg.Sensor = sensor.NewSimulated()
	agentCfg.StateStore = persistence.NewStateStore(filepath.Join(cfg.StateDir, stateFileName))
	agentCfg.Manifest = manifest
	agentCfg.TelemetryEnabled = cfg.Telemetry.Enabled
	agentCfg.TelemetryInterval = time.Duration(cfg.Telemetry.Interval)
	agentCfg.ButtonPoll = time.Duration(cfg.Board.ButtonPoll)
	agentCfg.NetworkCheck = time.Duration(cfg.Board.NetworkCheck)
	agentCfg.Logger = slogger
	agentCfg.ProtocolLogger = events

	a, err := agent.NewAgent(agentCfg)
	if err != nil {
		log.Fatalf("Creating agent: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var con *console
	if cli.Console {
		sim, _ := bd.(*board.Simulated)
		con, err = newConsole(a, loopback, sim)
		if err != nil {
			log.Fatalf("Creating console: %v", err)
		}
	} else {
		a.OnEvent(logEvent)
	}

	if err := a.Start(ctx); err != nil {
		log.Fatalf("Starting agent: %v", err)
	}
	log.Printf("Agent started (state: %s)", a.State())

	var adv *discovery.Advertiser
	if cfg.Discovery.Enabled && !cli.Offline {
		adv = discovery.NewAdvertiser(discovery.DefaultConfig())
		info := &discovery.Info{
			DeviceID:  deviceID,
			Firmware:  version.Current,
			Board:     backend,
			Telemetry: cfg.Telemetry.Enabled,
			Port:      uint16(cfg.Discovery.Port),
		}
		if err := adv.Advertise(info); err != nil {
			log.Printf("Warning: mDNS advertise failed: %v", err)
		} else {
			log.Printf("Advertising %s via %s", discovery.InstanceName(deviceID), discovery.ServiceType)
		}
	}

	if con != nil {
		go con.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}
	log.Println("Shutting down...")

	if err := a.Stop(); err != nil {
		log.Printf("Error stopping agent: %v", err)
	}
	if adv != nil {
		adv.Stop()
	}
	if err := tr.Close(); err != nil {
		log.Printf("Error closing transport: %v", err)
	}
	if err := bd.Close(); err != nil {
		log.Printf("Error closing board: %v", err)
	}
	closeEvents()

	log.Println("Goodbye!")
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}

// resolveConfig merges defaults, the config file, the environment and
// the command line, in that order.
func resolveConfig() (config.Config, error) {
	cfg := config.DefaultConfig()
	if cli.ConfigFile != "" {
		loaded, err := config.Load(cli.ConfigFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}

	if cli.DeviceID != "" {
		cfg.DeviceID = cli.DeviceID
	}
	if cli.Broker != "" {
		cfg.Broker.URL = cli.Broker
	}
	if cli.StateDir != "" {
		cfg.StateDir = cli.StateDir
	}
	if cli.Board != "" {
		cfg.Board.Backend = cli.Board
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.EventLog != "" {
		cfg.Log.File = cli.EventLog
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func resolveDeviceID(cfg config.Config) (string, error) {
	if cfg.DeviceID != "" {
		return cfg.DeviceID, nil
	}
	return provision.LoadOrCreateDeviceID(filepath.Join(cfg.StateDir, identityFileName))
}

func newSlogger(level string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}

// buildEventLogger assembles the protocol event sinks: the .etlog file
// and the console mirror. The returned close function flushes the file.
func buildEventLogger(cfg config.Config, slogger *slog.Logger) (etlog.Logger, func(), error) {
	var loggers []etlog.Logger
	closer := func() {}

	if cfg.Log.File != "" {
		fl, err := etlog.NewFileLogger(cfg.Log.File)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fl)
		closer = func() {
			if err := fl.Close(); err != nil {
				log.Printf("Error closing event log: %v", err)
			}
		}
	}
	if cfg.Log.Console {
		loggers = append(loggers, etlog.NewSlogAdapter(slogger))
	}

	switch len(loggers) {
	case 0:
		return nil, closer, nil
	case 1:
		return loggers[0], closer, nil
	default:
		return etlog.NewMultiLogger(loggers...), closer, nil
	}
}

// brokerCredentials picks explicit credentials when configured and
// falls back to deriving them from the fleet enrollment key.
func brokerCredentials(cfg config.Config, deviceID string) (string, string, error) {
	if cfg.Broker.Password != "" || cfg.Broker.EnrollmentKey == "" {
		return cfg.Broker.Username, cfg.Broker.Password, nil
	}
	key, err := provision.DecodeEnrollmentKey(cfg.Broker.EnrollmentKey)
	if err != nil {
		return "", "", err
	}
	return provision.Credentials(key, deviceID)
}

// buildTransport returns the broker transport, or the loopback in
// offline mode. The second return value is non-nil only for the
// loopback; the console uses it to inject desired documents.
func buildTransport(cfg config.Config, deviceID string, events etlog.Logger) (transport.Transport, *transport.Loopback, error) {
	if cli.Offline {
		lb := transport.NewLoopback(events)
		return lb, lb, nil
	}

	if cfg.Broker.URL == "" {
		return nil, nil, fmt.Errorf("no broker URL configured (set -broker or use -offline)")
	}
	username, password, err := brokerCredentials(cfg, deviceID)
	if err != nil {
		return nil, nil, err
	}

	opts := transport.DefaultOptions()
	opts.BrokerURL = cfg.Broker.URL
	opts.DeviceID = deviceID
	opts.TopicRoot = cfg.Broker.TopicRoot
	opts.Username = username
	opts.Password = password
	opts.KeepAlive = time.Duration(cfg.Broker.KeepAlive)
	opts.ConnectTimeout = time.Duration(cfg.Broker.ConnectTimeout)
	opts.AutoReconnect = cfg.Broker.AutoReconnect
	opts.Logger = events
	return transport.NewMQTT(opts), nil, nil
}

// openBoard opens the configured peripheral backend. "auto" tries the
// GPIO hardware first and falls back to the simulated board.
func openBoard(cfg config.BoardConfig) (board.Board, string, error) {
	pins := gpioPins(cfg.Pins)
	switch cfg.Backend {
	case config.BoardGPIO:
		b, err := board.NewGPIO(pins)
		if err != nil {
			return nil, "", fmt.Errorf("opening GPIO board: %w", err)
		}
		return b, config.BoardGPIO, nil
	case config.BoardSimulated:
		return board.NewSimulated(), config.BoardSimulated, nil
	default:
		if b, err := board.NewGPIO(pins); err == nil {
			return b, config.BoardGPIO, nil
		}
		return board.NewSimulated(), config.BoardSimulated, nil
	}
}

// gpioPins overlays configured pin names on the reference wiring.
func gpioPins(pins config.PinsConfig) board.GPIOPins {
	p := board.DefaultGPIOPins()
	if pins.LED1 != "" {
		p.LED1 = pins.LED1
	}
	if pins.LED2 != "" {
		p.LED2 = pins.LED2
	}
	if pins.NetworkLED != "" {
		p.NetworkLED = pins.NetworkLED
	}
	if pins.ButtonA != "" {
		p.ButtonA = pins.ButtonA
	}
	if pins.ButtonB != "" {
		p.ButtonB = pins.ButtonB
	}
	p.ActiveLowLEDs = pins.ActiveLowLEDs
	return p
}

func logEvent(event agent.Event) {
	switch event.Type {
	case agent.EventConnectivityChanged:
		if up, ok := event.Value.(bool); ok && up {
			log.Println("[EVENT] Hub connected")
		} else {
			log.Println("[EVENT] Hub disconnected")
		}
	case agent.EventButtonPressed:
		log.Printf("[EVENT] Button pressed: %v", event.Value)
	case agent.EventBlinkRateChanged:
		log.Printf("[EVENT] Blink interval now %v", event.Value)
	case agent.EventDesiredApplied:
		log.Printf("[EVENT] Desired %s applied: %v", event.Property, event.Value)
	case agent.EventTelemetrySent:
		log.Printf("[EVENT] Telemetry sent (MsgId %v)", event.Value)
	case agent.EventTwinRequested:
		log.Println("[EVENT] Twin document requested")
	}
}
