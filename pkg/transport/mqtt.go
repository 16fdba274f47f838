package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	json "github.com/goccy/go-json"

	"github.com/edgetwin/edgetwin-go/pkg/log"
)

// DefaultTopicRoot is the first segment of every topic when Options
// leaves TopicRoot empty.
const DefaultTopicRoot = "edgetwin"

const qosAtLeastOnce byte = 1

// maxLoggedPayload bounds the raw bytes copied into message events.
const maxLoggedPayload = 512

var errPublishTimeout = errors.New("transport: publish not acknowledged")

// Options configures the MQTT transport.
type Options struct {
	// BrokerURL is the broker address, e.g. "tcp://hub.example.com:1883"
	// or "ssl://hub.example.com:8883".
	BrokerURL string

	// DeviceID identifies this device. It is used as the MQTT client ID
	// and as the device segment of every topic.
	DeviceID string

	// TopicRoot is the first topic segment (default "edgetwin").
	TopicRoot string

	// Username and Password are the broker credentials, if required.
	Username string
	Password string

	// TLSConfig enables TLS when set (use with an ssl:// broker URL).
	TLSConfig *tls.Config

	// ConnectTimeout bounds the initial connection attempt (default 10s).
	ConnectTimeout time.Duration

	// KeepAlive is the MQTT keep-alive interval (default 30s).
	KeepAlive time.Duration

	// PublishTimeout bounds how long delivery of a publish is awaited
	// for logging purposes (default 10s).
	PublishTimeout time.Duration

	// AutoReconnect re-establishes lost connections in the background.
	AutoReconnect bool

	// Logger receives transport events. Nil disables logging.
	Logger log.Logger
}

// DefaultOptions returns options with sensible defaults. BrokerURL and
// DeviceID must still be set by the caller.
func DefaultOptions() Options {
	return Options{
		TopicRoot:      DefaultTopicRoot,
		ConnectTimeout: 10 * time.Second,
		KeepAlive:      30 * time.Second,
		PublishTimeout: 10 * time.Second,
		AutoReconnect:  true,
	}
}

// MQTT is the broker-backed transport implementation.
type MQTT struct {
	opts   Options
	logger log.Logger

	mu      sync.Mutex
	client  mqtt.Client
	handler DesiredStateHandler
	closed  bool
}

// NewMQTT creates an MQTT transport. Zero option fields fall back to
// the DefaultOptions values.
func NewMQTT(opts Options) *MQTT {
	def := DefaultOptions()
	if opts.TopicRoot == "" {
		opts.TopicRoot = def.TopicRoot
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = def.ConnectTimeout
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = def.KeepAlive
	}
	if opts.PublishTimeout == 0 {
		opts.PublishTimeout = def.PublishTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &MQTT{
		opts:   opts,
		logger: logger,
	}
}

// SetDesiredStateHandler registers the inbound document callback.
func (m *MQTT) SetDesiredStateHandler(handler DesiredStateHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// Connect establishes the broker connection and subscribes to the
// device's desired-state topic. Calling Connect while connected is a
// no-op.
func (m *MQTT) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.opts.BrokerURL == "" {
		m.mu.Unlock()
		return ErrMissingBroker
	}
	if m.opts.DeviceID == "" {
		m.mu.Unlock()
		return ErrMissingDeviceID
	}
	if m.client != nil && m.client.IsConnectionOpen() {
		m.mu.Unlock()
		return nil
	}
	if m.client == nil {
		m.client = mqtt.NewClient(m.clientOptions())
	}
	client := m.client
	m.mu.Unlock()

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		m.logError("connect "+m.opts.BrokerURL, err)
		return err
	}
	return nil
}

// Connected reports whether the broker connection is up.
func (m *MQTT) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil && m.client.IsConnectionOpen()
}

// SendReportedState publishes a reported-state fragment to the device's
// reported topic. Delivery is fire-and-forget; the acknowledgement is
// awaited in the background for logging only.
func (m *MQTT) SendReportedState(_ context.Context, payload []byte) error {
	return m.publish(m.reportedTopic(), payload)
}

// SendTelemetry publishes a telemetry envelope.
func (m *MQTT) SendTelemetry(_ context.Context, payload []byte) error {
	return m.publish(m.telemetryTopic(), payload)
}

// RequestTwin asks the hub to resend the desired state for the given
// properties. An empty slice requests all properties.
func (m *MQTT) RequestTwin(_ context.Context, properties []string) error {
	if properties == nil {
		properties = []string{}
	}
	payload, err := json.Marshal(properties)
	if err != nil {
		return err
	}
	return m.publish(m.getTopic(), payload)
}

// Close disconnects from the broker. The transport cannot be reused.
func (m *MQTT) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.client != nil {
		m.client.Disconnect(250)
		m.logStateChange("Connected", "Disconnected", "closed")
	}
	return nil
}

func (m *MQTT) publish(topic string, payload []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	client := m.client
	m.mu.Unlock()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := client.Publish(topic, qosAtLeastOnce, false, payload)
	m.logMessage(log.DirectionOut, topic, payload)
	go m.awaitDelivery(topic, token)
	return nil
}

// awaitDelivery waits for the broker acknowledgement on a background
// goroutine. Failures are logged, never returned; the publish itself
// already succeeded from the caller's point of view.
func (m *MQTT) awaitDelivery(topic string, token mqtt.Token) {
	if !token.WaitTimeout(m.opts.PublishTimeout) {
		m.logError("publish "+topic, errPublishTimeout)
		return
	}
	if err := token.Error(); err != nil {
		m.logError("publish "+topic, err)
	}
}

func (m *MQTT) clientOptions() *mqtt.ClientOptions {
	co := mqtt.NewClientOptions()
	co.AddBroker(m.opts.BrokerURL)
	co.SetClientID(m.opts.DeviceID)
	co.SetConnectTimeout(m.opts.ConnectTimeout)
	co.SetKeepAlive(m.opts.KeepAlive)
	co.SetAutoReconnect(m.opts.AutoReconnect)
	co.SetCleanSession(true)
	if m.opts.Username != "" {
		co.SetUsername(m.opts.Username)
		co.SetPassword(m.opts.Password)
	}
	if m.opts.TLSConfig != nil {
		co.SetTLSConfig(m.opts.TLSConfig)
	}
	// Subscribing in the connect handler keeps the subscription alive
	// across automatic reconnects.
	co.SetOnConnectHandler(func(client mqtt.Client) {
		m.logStateChange("Disconnected", "Connected", "")
		token := client.Subscribe(m.desiredTopic(), qosAtLeastOnce, m.onDesired)
		go func() {
			token.Wait()
			if err := token.Error(); err != nil {
				m.logError("subscribe "+m.desiredTopic(), err)
			}
		}()
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.logStateChange("Connected", "Disconnected", err.Error())
	})
	return co
}

// onDesired runs on the MQTT client's goroutine for every inbound
// desired-state document.
func (m *MQTT) onDesired(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	m.logMessage(log.DirectionIn, msg.Topic(), payload)

	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	if handler != nil {
		handler(payload)
	}
}

func (m *MQTT) desiredTopic() string {
	return m.opts.TopicRoot + "/twin/" + m.opts.DeviceID + "/desired"
}

func (m *MQTT) reportedTopic() string {
	return m.opts.TopicRoot + "/twin/" + m.opts.DeviceID + "/reported"
}

func (m *MQTT) getTopic() string {
	return m.opts.TopicRoot + "/twin/" + m.opts.DeviceID + "/get"
}

func (m *MQTT) telemetryTopic() string {
	return m.opts.TopicRoot + "/telemetry/" + m.opts.DeviceID
}

func (m *MQTT) logMessage(dir log.Direction, topic string, payload []byte) {
	data := payload
	truncated := false
	if len(data) > maxLoggedPayload {
		data = data[:maxLoggedPayload]
		truncated = true
	}
	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		DeviceID:  m.opts.DeviceID,
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Topic:     topic,
		Message: &log.MessageEvent{
			Size:      len(payload),
			Data:      data,
			Truncated: truncated,
		},
	})
}

func (m *MQTT) logStateChange(oldState, newState, reason string) {
	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		DeviceID:  m.opts.DeviceID,
		Layer:     log.LayerTransport,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityTransport,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (m *MQTT) logError(context string, err error) {
	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		DeviceID:  m.opts.DeviceID,
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: context,
		},
	})
}
