package telemetry

import (
	"testing"

	"github.com/edgetwin/edgetwin-go/pkg/sensor"
)

func TestEncodeFixedPrecision(t *testing.T) {
	enc := NewEncoder()

	data, err := enc.Encode(sensor.Sample{
		Temperature: 24.5,
		Humidity:    44,
		Pressure:    1010.3,
		Light:       300,
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := `{"Temperature":24.50,"Humidity":44.0,"Pressure":1010.3,"Light":300,"MsgId":0}`
	if string(data) != want {
		t.Errorf("Encode() = %s, want %s", data, want)
	}
}

func TestEncodeNegativeTemperature(t *testing.T) {
	enc := NewEncoder()

	data, err := enc.Encode(sensor.Sample{Temperature: -5.25, Humidity: 30, Pressure: 990, Light: 0})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	env, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if env.Temperature != -5.25 {
		t.Errorf("Temperature = %v, want -5.25", env.Temperature)
	}
}

func TestEncoderSequence(t *testing.T) {
	enc := NewEncoder()
	s := sensor.Sample{Temperature: 20, Humidity: 40, Pressure: 1000, Light: 100}

	for want := 0; want < 3; want++ {
		if got := enc.NextID(); got != want {
			t.Fatalf("NextID() before send %d = %d", want, got)
		}

		data, err := enc.Encode(s)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		env, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.MsgID != want {
			t.Errorf("MsgId = %d, want %d", env.MsgID, want)
		}
	}
}

func TestEncoderResume(t *testing.T) {
	enc := NewEncoderAt(17)

	data, err := enc.Encode(sensor.Sample{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	env, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if env.MsgID != 17 {
		t.Errorf("resumed MsgId = %d, want 17", env.MsgID)
	}
	if got := enc.NextID(); got != 18 {
		t.Errorf("NextID() after resume send = %d, want 18", got)
	}

	t.Run("NegativeClampedToZero", func(t *testing.T) {
		enc := NewEncoderAt(-4)
		if got := enc.NextID(); got != 0 {
			t.Errorf("NextID() = %d, want 0", got)
		}
	})
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte(`{"Temperature":`)); err == nil {
		t.Error("Decode() of truncated document succeeded, want error")
	}
}
