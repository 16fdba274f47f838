package twin

// Kind identifies the value type of a twin binding.
// Bindings are created through per-kind constructors, so every binding
// carries one of the kinds below; there is no unknown state.
type Kind uint8

const (
	// KindInteger holds a whole number (JSON number, truncated).
	KindInteger Kind = iota

	// KindFloat holds a float32 (JSON number, narrowed).
	KindFloat

	// KindBoolean holds a bool.
	KindBoolean

	// KindString holds a string borrowed from the inbound document.
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	case KindString:
		return "String"
	default:
		return "Invalid"
	}
}

// BorrowedString is a reference to a string taken from a transient inbound
// document. It is valid only during the dispatch that produced it; the
// dispatcher releases it right after the state report is sent. Only this
// package creates valid borrows.
type BorrowedString struct {
	s     string
	valid bool
}

// Get returns the borrowed string and whether the borrow is still valid.
func (b BorrowedString) Get() (string, bool) {
	return b.s, b.valid
}

// Value is a fixed-size tagged variant holding a binding's current state.
// One cell per kind is embedded directly in the binding, so there is no
// allocation or free lifecycle for state storage.
type Value struct {
	kind    Kind
	present bool

	intCell   int64
	floatCell float32
	boolCell  bool
	strSlot   BorrowedString
}

// Kind returns the variant's kind tag.
func (v *Value) Kind() Kind {
	return v.kind
}

// HasValue returns true once a value has been stored and not cleared.
// For KindString it is true only while a borrow is live.
func (v *Value) HasValue() bool {
	if v.kind == KindString {
		return v.strSlot.valid
	}
	return v.present
}

// Integer returns the stored integer and whether one is present.
func (v *Value) Integer() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.intCell, v.present
}

// Float returns the stored float and whether one is present.
func (v *Value) Float() (float32, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.floatCell, v.present
}

// Bool returns the stored boolean and whether one is present.
func (v *Value) Bool() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.boolCell, v.present
}

// StringValue returns the borrowed string and whether the borrow is live.
func (v *Value) StringValue() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.strSlot.Get()
}

// Borrowed returns the string slot as an explicit borrowed reference.
func (v *Value) Borrowed() BorrowedString {
	if v.kind != KindString {
		return BorrowedString{}
	}
	return v.strSlot
}

func (v *Value) setInteger(n int64) {
	v.intCell = n
	v.present = true
}

func (v *Value) setFloat(f float32) {
	v.floatCell = f
	v.present = true
}

func (v *Value) setBool(b bool) {
	v.boolCell = b
	v.present = true
}

func (v *Value) bindString(s string) {
	v.strSlot = BorrowedString{s: s, valid: true}
}

func (v *Value) releaseString() {
	v.strSlot = BorrowedString{}
}

// clear resets the variant to the no-value state, keeping the kind tag.
func (v *Value) clear() {
	*v = Value{kind: v.kind}
}
