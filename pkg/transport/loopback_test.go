package transport

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestLoopbackSendRequiresConnect(t *testing.T) {
	lb := NewLoopback(nil)

	if err := lb.SendReportedState(context.Background(), []byte(`{"ledOn":true}`)); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	if err := lb.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if !lb.Connected() {
		t.Fatal("expected connected after Connect")
	}

	payload := []byte(`{"ledOn":true}`)
	if err := lb.SendReportedState(context.Background(), payload); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := lb.LastReported(); !bytes.Equal(got, payload) {
		t.Fatalf("last reported = %s, want %s", got, payload)
	}
	if n := len(lb.Reported()); n != 1 {
		t.Fatalf("reported count = %d, want 1", n)
	}
}

func TestLoopbackTelemetry(t *testing.T) {
	lb := NewLoopback(nil)
	if err := lb.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	payload := []byte(`{"Temperature":72.3,"MsgId":1}`)
	if err := lb.SendTelemetry(context.Background(), payload); err != nil {
		t.Fatalf("send telemetry failed: %v", err)
	}
	sent := lb.Telemetry()
	if len(sent) != 1 || !bytes.Equal(sent[0], payload) {
		t.Fatalf("telemetry = %v, want one entry %s", sent, payload)
	}
}

func TestLoopbackPushDesired(t *testing.T) {
	lb := NewLoopback(nil)

	var received [][]byte
	lb.SetDesiredStateHandler(func(payload []byte) {
		received = append(received, append([]byte(nil), payload...))
	})

	// Not connected yet: the document is retained but not delivered.
	doc := []byte(`{"desired":{"led1BlinkRate":{"value":42}}}`)
	lb.PushDesired(doc)
	if len(received) != 0 {
		t.Fatalf("expected no delivery before connect, got %d", len(received))
	}

	if err := lb.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	lb.PushDesired(doc)
	if len(received) != 1 || !bytes.Equal(received[0], doc) {
		t.Fatalf("received = %v, want one delivery of %s", received, doc)
	}
}

func TestLoopbackRequestTwinRedelivers(t *testing.T) {
	lb := NewLoopback(nil)

	var received [][]byte
	lb.SetDesiredStateHandler(func(payload []byte) {
		received = append(received, append([]byte(nil), payload...))
	})
	if err := lb.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	doc := []byte(`{"led1BlinkRate":{"value":7}}`)
	lb.SetDesired(doc)
	if len(received) != 0 {
		t.Fatal("SetDesired must not deliver")
	}

	if err := lb.RequestTwin(context.Background(), []string{"led1BlinkRate"}); err != nil {
		t.Fatalf("request twin failed: %v", err)
	}
	if len(received) != 1 || !bytes.Equal(received[0], doc) {
		t.Fatalf("received = %v, want redelivery of %s", received, doc)
	}

	reqs := lb.Requests()
	if len(reqs) != 1 || len(reqs[0]) != 1 || reqs[0][0] != "led1BlinkRate" {
		t.Fatalf("requests = %v, want [[led1BlinkRate]]", reqs)
	}
}

func TestLoopbackDisconnect(t *testing.T) {
	lb := NewLoopback(nil)
	if err := lb.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	lb.Disconnect()
	if lb.Connected() {
		t.Fatal("expected disconnected")
	}
	if err := lb.SendReportedState(context.Background(), []byte(`{}`)); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	// A fresh connect recovers.
	if err := lb.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if err := lb.SendReportedState(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("send after reconnect failed: %v", err)
	}
}

func TestLoopbackClose(t *testing.T) {
	lb := NewLoopback(nil)
	if err := lb.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := lb.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := lb.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Connect, got %v", err)
	}
	if err := lb.SendTelemetry(context.Background(), []byte(`{}`)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from send, got %v", err)
	}
}
