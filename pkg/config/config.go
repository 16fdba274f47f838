package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates a configuration value failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Duration wraps time.Duration so YAML can carry values like "30s".
// Convert with time.Duration(d) at the point of use.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the agent configuration.
type Config struct {
	// DeviceID identifies this device to the hub. Empty means use the
	// persisted identity, generating one on first run.
	DeviceID string `yaml:"device_id" env:"EDGETWIN_DEVICE_ID"`

	// StateDir is where the agent persists its state file.
	StateDir string `yaml:"state_dir" env:"EDGETWIN_STATE_DIR"`

	// Broker configures the hub connection.
	Broker BrokerConfig `yaml:"broker"`

	// Telemetry configures the sensor reporting loop.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Board configures the peripheral backend.
	Board BoardConfig `yaml:"board"`

	// Log configures event logging.
	Log LogConfig `yaml:"log"`

	// Discovery configures LAN announcement.
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// BrokerConfig configures the MQTT hub connection.
type BrokerConfig struct {
	// URL is the broker address, e.g. "tcp://hub.example.com:1883".
	URL string `yaml:"url" env:"EDGETWIN_BROKER_URL"`

	// Username and Password are the broker credentials, if required.
	Username string `yaml:"username" env:"EDGETWIN_BROKER_USERNAME"`
	Password string `yaml:"password" env:"EDGETWIN_BROKER_PASSWORD"`

	// EnrollmentKey is the base64-encoded fleet enrollment key. When set
	// and no password is configured, the agent derives its broker
	// credentials from this key and its device ID.
	EnrollmentKey string `yaml:"enrollment_key" env:"EDGETWIN_ENROLLMENT_KEY"`

	// TopicRoot is the first topic segment (default "edgetwin").
	TopicRoot string `yaml:"topic_root" env:"EDGETWIN_TOPIC_ROOT"`

	// KeepAlive is the MQTT keep-alive interval.
	KeepAlive Duration `yaml:"keep_alive"`

	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout Duration `yaml:"connect_timeout"`

	// AutoReconnect re-establishes lost connections in the background.
	AutoReconnect bool `yaml:"auto_reconnect"`
}

// TelemetryConfig configures the sensor reporting loop.
type TelemetryConfig struct {
	// Enabled turns the telemetry loop on.
	Enabled bool `yaml:"enabled"`

	// Interval is the time between sensor readings.
	Interval Duration `yaml:"interval"`
}

// BoardConfig configures the peripheral backend.
type BoardConfig struct {
	// Backend selects the peripheral implementation: "auto" picks GPIO
	// hardware when available and falls back to "simulated".
	Backend string `yaml:"backend" env:"EDGETWIN_BOARD_BACKEND"`

	// ButtonPoll is the button sampling period.
	ButtonPoll Duration `yaml:"button_poll"`

	// NetworkCheck is the connectivity LED refresh period.
	NetworkCheck Duration `yaml:"network_check"`

	// Pins overrides the reference GPIO wiring. Empty names keep the
	// defaults.
	Pins PinsConfig `yaml:"pins"`
}

// PinsConfig names GPIO pins per peripheral role, gpioreg style
// (e.g. "GPIO17").
type PinsConfig struct {
	LED1       string `yaml:"led1"`
	LED2       string `yaml:"led2"`
	NetworkLED string `yaml:"network_led"`
	ButtonA    string `yaml:"button_a"`
	ButtonB    string `yaml:"button_b"`

	// ActiveLowLEDs marks LEDs that sink current: on drives the pin low.
	ActiveLowLEDs bool `yaml:"active_low_leds"`
}

// LogConfig configures event logging.
type LogConfig struct {
	// File is the event log path (.etlog). Empty disables the file log.
	File string `yaml:"file" env:"EDGETWIN_LOG_FILE"`

	// Level is the console log level: debug, info, warn or error.
	Level string `yaml:"level" env:"EDGETWIN_LOG_LEVEL"`

	// Console mirrors events to stderr.
	Console bool `yaml:"console"`
}

// DiscoveryConfig configures LAN announcement.
type DiscoveryConfig struct {
	// Enabled turns mDNS announcement on.
	Enabled bool `yaml:"enabled"`

	// Port is the advertised service port.
	Port int `yaml:"port"`
}

// Board backends.
const (
	BoardAuto      = "auto"
	BoardGPIO      = "gpio"
	BoardSimulated = "simulated"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StateDir: ".",
		Broker: BrokerConfig{
			TopicRoot:      "edgetwin",
			KeepAlive:      Duration(30 * time.Second),
			ConnectTimeout: Duration(10 * time.Second),
			AutoReconnect:  true,
		},
		Telemetry: TelemetryConfig{
			Enabled:  true,
			Interval: Duration(10 * time.Second),
		},
		Board: BoardConfig{
			Backend:      BoardAuto,
			ButtonPoll:   Duration(20 * time.Millisecond),
			NetworkCheck: Duration(5 * time.Second),
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Port:    8443,
		},
	}
}

// Parse merges YAML bytes over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// ApplyEnv overlays EDGETWIN_* environment variables onto the config.
// Unset variables leave the existing values in place.
func (c *Config) ApplyEnv() error {
	err := envdecode.Decode(c)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decoding environment: %w", err)
	}
	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if time.Duration(c.Telemetry.Interval) <= 0 {
		return fmt.Errorf("%w: telemetry interval must be positive", ErrInvalidConfig)
	}
	if time.Duration(c.Board.ButtonPoll) <= 0 {
		return fmt.Errorf("%w: button poll period must be positive", ErrInvalidConfig)
	}
	if time.Duration(c.Board.NetworkCheck) <= 0 {
		return fmt.Errorf("%w: network check period must be positive", ErrInvalidConfig)
	}
	switch c.Board.Backend {
	case BoardAuto, BoardGPIO, BoardSimulated:
	default:
		return fmt.Errorf("%w: unknown board backend %q", ErrInvalidConfig, c.Board.Backend)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	if c.Broker.TopicRoot == "" {
		return fmt.Errorf("%w: topic root must not be empty", ErrInvalidConfig)
	}
	if c.Discovery.Enabled && (c.Discovery.Port <= 0 || c.Discovery.Port > 65535) {
		return fmt.Errorf("%w: discovery port out of range", ErrInvalidConfig)
	}
	return nil
}
