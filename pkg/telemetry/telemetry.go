package telemetry

import (
	"strconv"
	"sync"

	"github.com/goccy/go-json"

	"github.com/edgetwin/edgetwin-go/pkg/sensor"
)

// Envelope is the telemetry document as it appears on the wire.
type Envelope struct {
	Temperature float64 `json:"Temperature"`
	Humidity    float64 `json:"Humidity"`
	Pressure    float64 `json:"Pressure"`
	Light       int     `json:"Light"`
	MsgID       int     `json:"MsgId"`
}

// MarshalJSON renders the envelope with fixed decimal precision.
func (e Envelope) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 96)
	buf = append(buf, `{"Temperature":`...)
	buf = strconv.AppendFloat(buf, e.Temperature, 'f', 2, 64)
	buf = append(buf, `,"Humidity":`...)
	buf = strconv.AppendFloat(buf, e.Humidity, 'f', 1, 64)
	buf = append(buf, `,"Pressure":`...)
	buf = strconv.AppendFloat(buf, e.Pressure, 'f', 1, 64)
	buf = append(buf, `,"Light":`...)
	buf = strconv.AppendInt(buf, int64(e.Light), 10)
	buf = append(buf, `,"MsgId":`...)
	buf = strconv.AppendInt(buf, int64(e.MsgID), 10)
	buf = append(buf, '}')
	return buf, nil
}

// Decode parses a telemetry document.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Encoder serializes samples and assigns MsgId sequence numbers.
type Encoder struct {
	mu     sync.Mutex
	nextID int
}

// NewEncoder creates an encoder whose first document carries MsgId 0.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// NewEncoderAt creates an encoder that resumes the sequence at nextID.
// Use this to continue numbering across agent restarts.
func NewEncoderAt(nextID int) *Encoder {
	if nextID < 0 {
		nextID = 0
	}
	return &Encoder{nextID: nextID}
}

// NextID returns the sequence number the next document will carry.
func (e *Encoder) NextID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextID
}

// Encode serializes the sample, assigning and consuming the next MsgId.
func (e *Encoder) Encode(s sensor.Sample) ([]byte, error) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.mu.Unlock()

	env := Envelope{
		Temperature: s.Temperature,
		Humidity:    s.Humidity,
		Pressure:    s.Pressure,
		Light:       s.Light,
		MsgID:       id,
	}
	return json.Marshal(env)
}
