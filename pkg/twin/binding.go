package twin

// SyncState tracks whether a binding's value has been acknowledged by the
// cloud.
type SyncState uint8

const (
	// StateUnset means no value has been both stored and acknowledged.
	StateUnset SyncState = iota

	// StateSynced means the current value was stored and the matching
	// state report was accepted by the transport.
	StateSynced
)

// String returns the sync state name.
func (s SyncState) String() string {
	switch s {
	case StateUnset:
		return "Unset"
	case StateSynced:
		return "Synced"
	default:
		return "Invalid"
	}
}

// Handler is invoked after a binding accepts a new value and before the
// value is reported back to the cloud. The handler may read the new value
// through the binding; for KindString the borrow is only valid inside the
// handler.
type Handler func(*Binding)

// Binding ties one cloud-synchronized property to its local typed state.
// The value variant is embedded in the binding; a binding's storage lives
// and dies with the binding itself.
type Binding struct {
	property string
	value    Value
	handler  Handler
	state    SyncState
}

// NewInteger creates an Integer binding. handler may be nil.
func NewInteger(property string, handler Handler) *Binding {
	return newBinding(property, KindInteger, handler)
}

// NewFloat creates a Float binding. handler may be nil.
func NewFloat(property string, handler Handler) *Binding {
	return newBinding(property, KindFloat, handler)
}

// NewBoolean creates a Boolean binding. handler may be nil.
func NewBoolean(property string, handler Handler) *Binding {
	return newBinding(property, KindBoolean, handler)
}

// NewString creates a String binding. handler may be nil.
func NewString(property string, handler Handler) *Binding {
	return newBinding(property, KindString, handler)
}

func newBinding(property string, kind Kind, handler Handler) *Binding {
	return &Binding{
		property: property,
		value:    Value{kind: kind},
		handler:  handler,
	}
}

// Property returns the property name used as the JSON lookup key.
func (b *Binding) Property() string {
	return b.property
}

// Kind returns the binding's value kind.
func (b *Binding) Kind() Kind {
	return b.value.kind
}

// State returns the binding's sync state.
func (b *Binding) State() SyncState {
	return b.state
}

// HasValue reports whether the binding currently holds a value.
func (b *Binding) HasValue() bool {
	return b.value.HasValue()
}

// Integer returns the stored integer and whether one is present.
func (b *Binding) Integer() (int64, bool) {
	return b.value.Integer()
}

// Float returns the stored float and whether one is present.
func (b *Binding) Float() (float32, bool) {
	return b.value.Float()
}

// Bool returns the stored boolean and whether one is present.
func (b *Binding) Bool() (bool, bool) {
	return b.value.Bool()
}

// StringValue returns the borrowed string and whether the borrow is live.
func (b *Binding) StringValue() (string, bool) {
	return b.value.StringValue()
}

// markSynced transitions the binding to StateSynced.
// Returns true if the state changed.
func (b *Binding) markSynced() bool {
	if b.state == StateSynced {
		return false
	}
	b.state = StateSynced
	return true
}

// reset clears the stored value and returns the binding to StateUnset.
func (b *Binding) reset() {
	b.value.clear()
	b.state = StateUnset
}
