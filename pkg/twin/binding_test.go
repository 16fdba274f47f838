package twin

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInteger, "Integer"},
		{KindFloat, "Float"},
		{KindBoolean, "Boolean"},
		{KindString, "String"},
		{Kind(99), "Invalid"},
	}

	for _, tt := range tests {
		got := tt.kind.String()
		if got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestSyncStateString(t *testing.T) {
	tests := []struct {
		state SyncState
		want  string
	}{
		{StateUnset, "Unset"},
		{StateSynced, "Synced"},
		{SyncState(99), "Invalid"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("SyncState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestBindingConstructors(t *testing.T) {
	tests := []struct {
		name    string
		binding *Binding
		kind    Kind
	}{
		{"integer", NewInteger("rate", nil), KindInteger},
		{"float", NewFloat("temp", nil), KindFloat},
		{"boolean", NewBoolean("on", nil), KindBoolean},
		{"string", NewString("label", nil), KindString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.binding.Kind() != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.binding.Kind(), tt.kind)
			}
			if tt.binding.State() != StateUnset {
				t.Errorf("State = %v, want %v", tt.binding.State(), StateUnset)
			}
			if tt.binding.HasValue() {
				t.Error("new binding should hold no value")
			}
		})
	}
}

func TestBindingTypedAccessors(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		b := NewInteger("rate", nil)
		if _, ok := b.Integer(); ok {
			t.Error("expected no value before set")
		}
		b.value.setInteger(42)
		n, ok := b.Integer()
		if !ok || n != 42 {
			t.Errorf("Integer() = (%d, %v), want (42, true)", n, ok)
		}
		// Wrong-kind accessors miss.
		if _, ok := b.Float(); ok {
			t.Error("Float() on Integer binding should miss")
		}
		if _, ok := b.Bool(); ok {
			t.Error("Bool() on Integer binding should miss")
		}
		if _, ok := b.StringValue(); ok {
			t.Error("StringValue() on Integer binding should miss")
		}
	})

	t.Run("float", func(t *testing.T) {
		b := NewFloat("temp", nil)
		b.value.setFloat(70.5)
		f, ok := b.Float()
		if !ok || f != 70.5 {
			t.Errorf("Float() = (%v, %v), want (70.5, true)", f, ok)
		}
	})

	t.Run("boolean", func(t *testing.T) {
		b := NewBoolean("on", nil)
		b.value.setBool(true)
		v, ok := b.Bool()
		if !ok || !v {
			t.Errorf("Bool() = (%v, %v), want (true, true)", v, ok)
		}
	})
}

func TestBorrowedStringLifecycle(t *testing.T) {
	b := NewString("label", nil)

	if _, ok := b.StringValue(); ok {
		t.Error("expected no live borrow before bind")
	}

	b.value.bindString("hello")
	s, ok := b.StringValue()
	if !ok || s != "hello" {
		t.Errorf("StringValue() = (%q, %v), want (\"hello\", true)", s, ok)
	}
	if !b.HasValue() {
		t.Error("HasValue should be true while a borrow is live")
	}

	borrow := b.value.Borrowed()
	if s, ok := borrow.Get(); !ok || s != "hello" {
		t.Errorf("Borrowed().Get() = (%q, %v), want (\"hello\", true)", s, ok)
	}

	b.value.releaseString()
	if _, ok := b.StringValue(); ok {
		t.Error("borrow must be invalid after release")
	}
	if b.HasValue() {
		t.Error("HasValue should be false after release")
	}

	// A copy taken before release stays valid; the binding's slot does not.
	if s, ok := borrow.Get(); !ok || s != "hello" {
		t.Errorf("detached borrow changed: (%q, %v)", s, ok)
	}
}

func TestMarkSynced(t *testing.T) {
	b := NewInteger("rate", nil)

	if !b.markSynced() {
		t.Error("first markSynced should report a transition")
	}
	if b.State() != StateSynced {
		t.Errorf("State = %v, want %v", b.State(), StateSynced)
	}
	if b.markSynced() {
		t.Error("second markSynced should not report a transition")
	}
}

func TestBindingReset(t *testing.T) {
	b := NewBoolean("on", nil)
	b.value.setBool(true)
	b.markSynced()

	b.reset()

	if b.HasValue() {
		t.Error("expected no value after reset")
	}
	if b.State() != StateUnset {
		t.Errorf("State = %v, want %v", b.State(), StateUnset)
	}
	if b.Kind() != KindBoolean {
		t.Errorf("Kind changed after reset: %v", b.Kind())
	}
}
