// Package testhub runs an in-process MQTT hub for transport and
// integration tests. It plays the cloud side of the twin protocol:
// desired-state documents can be staged per device, device publishes
// are captured for inspection, and resend requests are answered from
// the staged document.
package testhub

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/DrmagicE/gmqtt"
	"github.com/DrmagicE/gmqtt/pkg/packets"
)

// Hub is an in-process MQTT broker with twin semantics on top.
type Hub struct {
	root    string
	addr    string
	stop    func(context.Context)
	service gmqtt.Server

	mu         sync.Mutex
	desired    map[string][]byte
	reported   map[string][][]byte
	telemetry  map[string][][]byte
	requests   map[string][][]byte
	subscribed map[string]bool
}

// Start launches a hub on an ephemeral localhost port. root is the
// first topic segment the hub watches (usually "edgetwin").
func Start(root string) (*Hub, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("testhub: listen: %w", err)
	}

	h := &Hub{
		root:       root,
		addr:       "tcp://" + ln.Addr().String(),
		desired:    make(map[string][]byte),
		reported:   make(map[string][][]byte),
		telemetry:  make(map[string][][]byte),
		requests:   make(map[string][][]byte),
		subscribed: make(map[string]bool),
	}
	s := gmqtt.NewServer(
		gmqtt.WithTCPListener(ln),
		gmqtt.WithPlugin(h),
	)
	s.Run()
	h.stop = func(ctx context.Context) { s.Stop(ctx) }
	return h, nil
}

// Addr returns the broker URL, e.g. "tcp://127.0.0.1:49312".
func (h *Hub) Addr() string {
	return h.addr
}

// Close stops the broker.
func (h *Hub) Close() error {
	h.stop(context.Background())
	return nil
}

// SetDesired stages the desired-state document for a device without
// publishing it. A later resend request delivers it.
func (h *Hub) SetDesired(deviceID string, doc []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.desired[deviceID] = append([]byte(nil), doc...)
}

// PushDesired stages the document and publishes it to the device's
// desired-state topic.
func (h *Hub) PushDesired(deviceID string, doc []byte) {
	h.SetDesired(deviceID, doc)
	h.publishDesired(deviceID, doc)
}

// Reported returns every reported-state fragment received from the
// device, oldest first.
func (h *Hub) Reported(deviceID string) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyPayloads(h.reported[deviceID])
}

// LastReported returns the most recent reported-state fragment, or nil.
func (h *Hub) LastReported(deviceID string) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	payloads := h.reported[deviceID]
	if len(payloads) == 0 {
		return nil
	}
	return append([]byte(nil), payloads[len(payloads)-1]...)
}

// Telemetry returns every telemetry envelope received from the device.
func (h *Hub) Telemetry(deviceID string) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyPayloads(h.telemetry[deviceID])
}

// Requests returns the raw payloads of the device's resend requests.
func (h *Hub) Requests(deviceID string) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyPayloads(h.requests[deviceID])
}

// Subscribed reports whether the device holds a subscription on its
// desired-state topic. Tests wait on this before pushing documents;
// a publish before the subscription lands is silently lost.
func (h *Hub) Subscribed(deviceID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribed[deviceID]
}

// Load implements the gmqtt plugin interface.
func (h *Hub) Load(service gmqtt.Server) error {
	h.service = service
	return nil
}

// Unload implements the gmqtt plugin interface.
func (h *Hub) Unload() error {
	return nil
}

// Name implements the gmqtt plugin interface.
func (h *Hub) Name() string {
	return "testhub"
}

// HookWrapper implements the gmqtt plugin interface.
func (h *Hub) HookWrapper() gmqtt.HookWrapper {
	return gmqtt.HookWrapper{
		OnMsgArrivedWrapper: h.onMsgArrivedWrapper,
		OnSubscribedWrapper: h.onSubscribedWrapper,
	}
}

func (h *Hub) onMsgArrivedWrapper(next gmqtt.OnMsgArrived) gmqtt.OnMsgArrived {
	return func(ctx context.Context, client gmqtt.Client, msg packets.Message) bool {
		h.observe(msg.Topic(), msg.Payload())
		return next(ctx, client, msg)
	}
}

func (h *Hub) onSubscribedWrapper(next gmqtt.OnSubscribed) gmqtt.OnSubscribed {
	return func(ctx context.Context, client gmqtt.Client, topic packets.Topic) {
		parts := strings.Split(topic.Name, "/")
		if len(parts) == 4 && parts[0] == h.root && parts[1] == "twin" && parts[3] == "desired" {
			h.mu.Lock()
			h.subscribed[parts[2]] = true
			h.mu.Unlock()
		}
		next(ctx, client, topic)
	}
}

// observe routes one device publish into the capture maps. Topics are
// <root>/twin/<deviceID>/{reported,get} and <root>/telemetry/<deviceID>.
func (h *Hub) observe(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != h.root {
		return
	}
	switch parts[1] {
	case "twin":
		if len(parts) != 4 {
			return
		}
		deviceID := parts[2]
		switch parts[3] {
		case "reported":
			h.record(h.reported, deviceID, payload)
		case "get":
			h.record(h.requests, deviceID, payload)
			h.answerRequest(deviceID)
		}
	case "telemetry":
		if len(parts) != 3 {
			return
		}
		h.record(h.telemetry, parts[2], payload)
	}
}

func (h *Hub) record(captures map[string][][]byte, deviceID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	captures[deviceID] = append(captures[deviceID], append([]byte(nil), payload...))
}

// answerRequest republishes the staged desired-state document, if any.
func (h *Hub) answerRequest(deviceID string) {
	h.mu.Lock()
	doc := h.desired[deviceID]
	h.mu.Unlock()
	if doc != nil {
		h.publishDesired(deviceID, doc)
	}
}

func (h *Hub) publishDesired(deviceID string, doc []byte) {
	topic := h.root + "/twin/" + deviceID + "/desired"
	h.service.PublishService().Publish(gmqtt.NewMessage(topic, doc, packets.QOS_1))
}

func copyPayloads(payloads [][]byte) [][]byte {
	out := make([][]byte, len(payloads))
	for i, p := range payloads {
		out[i] = append([]byte(nil), p...)
	}
	return out
}
