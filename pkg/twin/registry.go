package twin

import (
	"errors"
	"fmt"
)

// Registry errors.
var (
	ErrNilBinding        = errors.New("nil binding")
	ErrEmptyProperty     = errors.New("binding has empty property name")
	ErrDuplicateProperty = errors.New("duplicate property name")
)

// Registry is the owned set of twin bindings for one device. It is built
// once at startup, passed to the dispatcher and reporter, and closed at
// shutdown. The registry's lifetime bounds the lifetime of every stored
// value.
type Registry struct {
	bindings []*Binding
	byName   map[string]*Binding
	closed   bool
}

// NewRegistry validates and indexes the given bindings. A nil binding, an
// empty property name or a duplicate property name is a configuration
// error; callers treat it as fatal at startup.
func NewRegistry(bindings ...*Binding) (*Registry, error) {
	r := &Registry{
		bindings: make([]*Binding, 0, len(bindings)),
		byName:   make(map[string]*Binding, len(bindings)),
	}

	for i, b := range bindings {
		if b == nil {
			return nil, fmt.Errorf("binding %d: %w", i, ErrNilBinding)
		}
		if b.property == "" {
			return nil, fmt.Errorf("binding %d: %w", i, ErrEmptyProperty)
		}
		if _, exists := r.byName[b.property]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProperty, b.property)
		}
		r.bindings = append(r.bindings, b)
		r.byName[b.property] = b
	}

	return r, nil
}

// Lookup returns the binding registered under property.
// It misses on a closed registry.
func (r *Registry) Lookup(property string) (*Binding, bool) {
	if r.closed {
		return nil, false
	}
	b, ok := r.byName[property]
	return b, ok
}

// Bindings returns the registered bindings in registration order.
func (r *Registry) Bindings() []*Binding {
	if r.closed {
		return nil
	}
	out := make([]*Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// Len returns the number of registered bindings.
func (r *Registry) Len() int {
	if r.closed {
		return 0
	}
	return len(r.bindings)
}

// Close clears every binding's value, returns them to StateUnset and marks
// the registry closed. Close is idempotent.
func (r *Registry) Close() {
	if r.closed {
		return
	}
	for _, b := range r.bindings {
		b.reset()
	}
	r.closed = true
}
