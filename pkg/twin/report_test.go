package twin

import (
	"context"
	"errors"
	"testing"
)

// fakeTransport records reporter traffic for assertions.
type fakeTransport struct {
	connectErr error
	sendErr    error

	connects  int
	sendCalls int
	sent      [][]byte
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connects++
	return f.connectErr
}

func (f *fakeTransport) SendReportedState(ctx context.Context, payload []byte) error {
	f.sendCalls++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), payload...))
	return nil
}

func (f *fakeTransport) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return string(f.sent[len(f.sent)-1])
}

func TestReportStateSerialization(t *testing.T) {
	tests := []struct {
		name    string
		binding *Binding
		prime   func(*Binding)
		want    string
	}{
		{
			name:    "boolean true",
			binding: NewBoolean("ledOn", nil),
			prime:   func(b *Binding) { b.value.setBool(true) },
			want:    `{"ledOn":true}`,
		},
		{
			name:    "boolean false",
			binding: NewBoolean("ledOn", nil),
			prime:   func(b *Binding) { b.value.setBool(false) },
			want:    `{"ledOn":false}`,
		},
		{
			name:    "integer",
			binding: NewInteger("led1BlinkRate", nil),
			prime:   func(b *Binding) { b.value.setInteger(500) },
			want:    `{"led1BlinkRate":500}`,
		},
		{
			name:    "negative integer",
			binding: NewInteger("offsetC", nil),
			prime:   func(b *Binding) { b.value.setInteger(-3) },
			want:    `{"offsetC":-3}`,
		},
		{
			name:    "float fixed notation",
			binding: NewFloat("targetTempF", nil),
			prime:   func(b *Binding) { b.value.setFloat(70.5) },
			want:    `{"targetTempF":70.500000}`,
		},
		{
			name:    "string quoted",
			binding: NewString("statusText", nil),
			prime:   func(b *Binding) { b.value.bindString("all good") },
			want:    `{"statusText":"all good"}`,
		},
		{
			name:    "string escaped",
			binding: NewString("statusText", nil),
			prime:   func(b *Binding) { b.value.bindString(`say "hi"`) },
			want:    `{"statusText":"say \"hi\""}`,
		},
		{
			name:    "unset integer reports zero",
			binding: NewInteger("count", nil),
			prime:   func(*Binding) {},
			want:    `{"count":0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			r := NewReporter(tr, nil)

			tt.prime(tt.binding)
			if err := r.ReportState(context.Background(), tt.binding); err != nil {
				t.Fatalf("ReportState failed: %v", err)
			}
			if got := tr.lastSent(); got != tt.want {
				t.Errorf("sent %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReportStateSyncTransition(t *testing.T) {
	tr := &fakeTransport{}
	r := NewReporter(tr, nil)
	b := NewInteger("rate", nil)
	b.value.setInteger(7)

	if b.State() != StateUnset {
		t.Fatalf("precondition: state = %v", b.State())
	}
	if err := r.ReportState(context.Background(), b); err != nil {
		t.Fatalf("ReportState failed: %v", err)
	}
	if b.State() != StateSynced {
		t.Errorf("state = %v after successful report, want Synced", b.State())
	}
}

func TestReportStateConnectFailure(t *testing.T) {
	tr := &fakeTransport{connectErr: errors.New("offline")}
	r := NewReporter(tr, nil)
	b := NewBoolean("ledOn", nil)
	b.value.setBool(true)

	err := r.ReportState(context.Background(), b)
	if err == nil {
		t.Fatal("expected error when connect fails")
	}
	if tr.sendCalls != 0 {
		t.Errorf("send was called %d times despite connect failure", tr.sendCalls)
	}
	if b.State() != StateUnset {
		t.Errorf("state = %v after failed report, want Unset", b.State())
	}
}

func TestReportStateSendFailureNoRetry(t *testing.T) {
	tr := &fakeTransport{sendErr: errors.New("publish refused")}
	r := NewReporter(tr, nil)
	b := NewInteger("rate", nil)
	b.value.setInteger(9)

	err := r.ReportState(context.Background(), b)
	if err == nil {
		t.Fatal("expected error when send fails")
	}
	if tr.sendCalls != 1 {
		t.Errorf("send attempted %d times, want exactly 1 (no retry)", tr.sendCalls)
	}
	if b.State() != StateUnset {
		t.Errorf("state = %v after failed send, want Unset", b.State())
	}

	// The stored value survives the failed report.
	if n, ok := b.Integer(); !ok || n != 9 {
		t.Errorf("stored value = (%d, %v), want (9, true)", n, ok)
	}
}

func TestReportStateStringWithoutBorrow(t *testing.T) {
	tr := &fakeTransport{}
	r := NewReporter(tr, nil)
	b := NewString("statusText", nil)

	err := r.ReportState(context.Background(), b)
	if !errors.Is(err, ErrNoValue) {
		t.Errorf("err = %v, want ErrNoValue", err)
	}
	if tr.sendCalls != 0 {
		t.Error("nothing should be sent when there is no value")
	}
}

func TestReportStateNoTransport(t *testing.T) {
	r := NewReporter(nil, nil)
	b := NewInteger("rate", nil)

	if err := r.ReportState(context.Background(), b); !errors.Is(err, ErrNoTransport) {
		t.Errorf("err = %v, want ErrNoTransport", err)
	}
}

func TestReportValue(t *testing.T) {
	t.Run("integer stores then serializes", func(t *testing.T) {
		tr := &fakeTransport{}
		r := NewReporter(tr, nil)
		b := NewInteger("led1BlinkRate", nil)

		if err := r.ReportValue(context.Background(), b, 250); err != nil {
			t.Fatalf("ReportValue failed: %v", err)
		}
		if got := tr.lastSent(); got != `{"led1BlinkRate":250}` {
			t.Errorf("sent %s", got)
		}
		if n, ok := b.Integer(); !ok || n != 250 {
			t.Errorf("stored value = (%d, %v), want (250, true)", n, ok)
		}
		if b.State() != StateSynced {
			t.Errorf("state = %v, want Synced", b.State())
		}
	})

	t.Run("float accepts float64", func(t *testing.T) {
		tr := &fakeTransport{}
		r := NewReporter(tr, nil)
		b := NewFloat("targetTempF", nil)

		if err := r.ReportValue(context.Background(), b, 68.0); err != nil {
			t.Fatalf("ReportValue failed: %v", err)
		}
		if got := tr.lastSent(); got != `{"targetTempF":68.000000}` {
			t.Errorf("sent %s", got)
		}
	})

	t.Run("string is not stored", func(t *testing.T) {
		tr := &fakeTransport{}
		r := NewReporter(tr, nil)
		b := NewString("statusText", nil)

		if err := r.ReportValue(context.Background(), b, "rebooting"); err != nil {
			t.Fatalf("ReportValue failed: %v", err)
		}
		if got := tr.lastSent(); got != `{"statusText":"rebooting"}` {
			t.Errorf("sent %s", got)
		}
		if _, ok := b.StringValue(); ok {
			t.Error("string value must not be stored long-term")
		}
	})

	t.Run("kind mismatch refused before store", func(t *testing.T) {
		tr := &fakeTransport{}
		r := NewReporter(tr, nil)
		b := NewInteger("rate", nil)

		err := r.ReportValue(context.Background(), b, "not a number")
		if !errors.Is(err, ErrValueKind) {
			t.Fatalf("err = %v, want ErrValueKind", err)
		}
		if tr.sendCalls != 0 {
			t.Error("nothing should be sent on kind mismatch")
		}
		if b.HasValue() {
			t.Error("value must not be stored on kind mismatch")
		}
	})

	t.Run("connect failure has no side effects", func(t *testing.T) {
		tr := &fakeTransport{connectErr: errors.New("offline")}
		r := NewReporter(tr, nil)
		b := NewInteger("rate", nil)

		if err := r.ReportValue(context.Background(), b, 99); err == nil {
			t.Fatal("expected error when connect fails")
		}
		if b.HasValue() {
			t.Error("value must not be stored when connect fails")
		}
	})
}

func TestRoundTripDispatchThenReport(t *testing.T) {
	tr := &fakeTransport{}
	r := NewReporter(tr, nil)
	b := NewInteger("led1BlinkRate", nil)

	registry, err := NewRegistry(b)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	d := NewDispatcher(registry, r, nil)

	d.HandleDesiredState(context.Background(), []byte(`{"desired":{"led1BlinkRate":{"value":1000}}}`))

	// The dispatch itself reported once; a following explicit report
	// must serialize the same stored value.
	if err := r.ReportState(context.Background(), b); err != nil {
		t.Fatalf("ReportState failed: %v", err)
	}
	want := `{"led1BlinkRate":1000}`
	if got := tr.lastSent(); got != want {
		t.Errorf("sent %s, want %s", got, want)
	}
	if len(tr.sent) != 2 {
		t.Errorf("sent %d reports, want 2", len(tr.sent))
	}
}
