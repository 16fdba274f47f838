package twin

import (
	"context"
	"testing"
)

func newTestDispatcher(t *testing.T, bindings ...*Binding) (*Dispatcher, *fakeTransport) {
	t.Helper()

	registry, err := NewRegistry(bindings...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	tr := &fakeTransport{}
	return NewDispatcher(registry, NewReporter(tr, nil), nil), tr
}

func TestHandleDesiredStateWrappedDocument(t *testing.T) {
	handled := 0
	b := NewInteger("led1BlinkRate", func(*Binding) { handled++ })
	d, tr := newTestDispatcher(t, b)

	d.HandleDesiredState(context.Background(), []byte(`{"desired":{"led1BlinkRate":{"value":42}}}`))

	if n, ok := b.Integer(); !ok || n != 42 {
		t.Errorf("stored value = (%d, %v), want (42, true)", n, ok)
	}
	if handled != 1 {
		t.Errorf("handler invoked %d times, want 1", handled)
	}
	if got := tr.lastSent(); got != `{"led1BlinkRate":42}` {
		t.Errorf("report sent %s", got)
	}
	if b.State() != StateSynced {
		t.Errorf("state = %v, want Synced", b.State())
	}

	stats := d.Stats()
	if stats.DocumentsHandled != 1 || stats.PropertiesApplied != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleDesiredStateUnwrappedDocument(t *testing.T) {
	b := NewInteger("led1BlinkRate", nil)
	d, tr := newTestDispatcher(t, b)

	d.HandleDesiredState(context.Background(), []byte(`{"led1BlinkRate":{"value":7}}`))

	if n, ok := b.Integer(); !ok || n != 7 {
		t.Errorf("stored value = (%d, %v), want (7, true)", n, ok)
	}
	if got := tr.lastSent(); got != `{"led1BlinkRate":7}` {
		t.Errorf("report sent %s", got)
	}
	if d.Stats().PropertiesApplied != 1 {
		t.Errorf("stats = %+v", d.Stats())
	}
}

func TestHandleDesiredStateWrongValueType(t *testing.T) {
	handled := 0
	b := NewInteger("led1BlinkRate", func(*Binding) { handled++ })
	d, tr := newTestDispatcher(t, b)

	d.HandleDesiredState(context.Background(), []byte(`{"desired":{"led1BlinkRate":{"value":"fast"}}}`))

	if b.HasValue() {
		t.Error("binding must stay unchanged on a mis-typed value")
	}
	if handled != 0 {
		t.Error("handler must not run on a mis-typed value")
	}
	if tr.sendCalls != 0 {
		t.Error("no report must be attempted on a mis-typed value")
	}
	if d.Stats().PropertiesIgnored != 1 {
		t.Errorf("stats = %+v", d.Stats())
	}
}

func TestHandleDesiredStateMalformedJSON(t *testing.T) {
	b := NewInteger("led1BlinkRate", nil)
	prev := NewBoolean("ledOn", nil)
	prev.value.setBool(true)
	d, tr := newTestDispatcher(t, b, prev)

	payloads := [][]byte{
		[]byte(`{"desired":{"led1BlinkRate":{"value":42`), // truncated
		[]byte(`not json at all`),
		[]byte(`[1,2,3]`), // not an object
		[]byte(``),
		nil,
	}
	for _, payload := range payloads {
		d.HandleDesiredState(context.Background(), payload)
	}

	if b.HasValue() {
		t.Error("binding mutated by malformed document")
	}
	if v, ok := prev.Bool(); !ok || !v {
		t.Error("previously stored value lost on malformed document")
	}
	if tr.sendCalls != 0 {
		t.Error("no report must be attempted for malformed documents")
	}

	stats := d.Stats()
	if stats.DocumentsDropped != uint64(len(payloads)) {
		t.Errorf("DocumentsDropped = %d, want %d", stats.DocumentsDropped, len(payloads))
	}
}

func TestHandleDesiredStateAllKinds(t *testing.T) {
	rate := NewInteger("led1BlinkRate", nil)
	temp := NewFloat("targetTempF", nil)
	on := NewBoolean("ledOn", nil)

	var seenLabel string
	label := NewString("statusText", func(b *Binding) {
		// The borrow is only valid inside the dispatch.
		seenLabel, _ = b.StringValue()
	})

	d, tr := newTestDispatcher(t, rate, temp, on, label)

	doc := `{"desired":{
		"led1BlinkRate":{"value":499.9},
		"targetTempF":{"value":70.5},
		"ledOn":{"value":true},
		"statusText":{"value":"ready"}
	}}`
	d.HandleDesiredState(context.Background(), []byte(doc))

	if n, _ := rate.Integer(); n != 499 {
		t.Errorf("integer value truncated to %d, want 499", n)
	}
	if f, _ := temp.Float(); f != 70.5 {
		t.Errorf("float value = %v, want 70.5", f)
	}
	if v, _ := on.Bool(); !v {
		t.Error("boolean value not stored")
	}
	if seenLabel != "ready" {
		t.Errorf("handler saw %q, want \"ready\"", seenLabel)
	}
	if _, ok := label.StringValue(); ok {
		t.Error("string borrow must be released after dispatch")
	}
	if len(tr.sent) != 4 {
		t.Errorf("sent %d reports, want 4", len(tr.sent))
	}
	if d.Stats().PropertiesApplied != 4 {
		t.Errorf("stats = %+v", d.Stats())
	}
}

func TestHandleDesiredStatePartialDocument(t *testing.T) {
	rate := NewInteger("led1BlinkRate", nil)
	on := NewBoolean("ledOn", nil)
	d, _ := newTestDispatcher(t, rate, on)

	// Only one property present; the other is skipped without being counted.
	d.HandleDesiredState(context.Background(), []byte(`{"desired":{"ledOn":{"value":true}}}`))

	if rate.HasValue() {
		t.Error("absent property must leave its binding untouched")
	}
	if v, ok := on.Bool(); !ok || !v {
		t.Error("present property not applied")
	}

	stats := d.Stats()
	if stats.PropertiesApplied != 1 || stats.PropertiesIgnored != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleDesiredStateBadEntriesDoNotBlockOthers(t *testing.T) {
	bad := NewInteger("bad", nil)
	alsoBad := NewFloat("alsoBad", nil)
	nullValue := NewBoolean("nullValue", nil)
	good := NewInteger("good", nil)

	d, tr := newTestDispatcher(t, bad, alsoBad, nullValue, good)

	doc := `{
		"bad": 5,
		"alsoBad": {"novalue": 1},
		"nullValue": {"value": null},
		"good": {"value": 3}
	}`
	d.HandleDesiredState(context.Background(), []byte(doc))

	if bad.HasValue() || alsoBad.HasValue() || nullValue.HasValue() {
		t.Error("malformed entries must not store values")
	}
	if n, ok := good.Integer(); !ok || n != 3 {
		t.Errorf("good = (%d, %v), want (3, true)", n, ok)
	}
	if len(tr.sent) != 1 {
		t.Errorf("sent %d reports, want 1", len(tr.sent))
	}

	stats := d.Stats()
	if stats.PropertiesIgnored != 3 || stats.PropertiesApplied != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHandleDesiredStateNonObjectDesired(t *testing.T) {
	b := NewInteger("rate", nil)
	d, _ := newTestDispatcher(t, b)

	// "desired" exists but is not an object, so the whole document is the
	// desired root; "rate" is found there.
	d.HandleDesiredState(context.Background(), []byte(`{"desired":7,"rate":{"value":12}}`))

	if n, ok := b.Integer(); !ok || n != 12 {
		t.Errorf("stored value = (%d, %v), want (12, true)", n, ok)
	}
}

func TestHandleDesiredStateHandlerRunsBeforeReport(t *testing.T) {
	var order []string
	b := NewBoolean("ledOn", func(*Binding) { order = append(order, "handler") })

	registry, err := NewRegistry(b)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	tr := &orderedTransport{order: &order}
	d := NewDispatcher(registry, NewReporter(tr, nil), nil)

	d.HandleDesiredState(context.Background(), []byte(`{"ledOn":{"value":true}}`))

	if len(order) != 2 || order[0] != "handler" || order[1] != "send" {
		t.Errorf("order = %v, want [handler send]", order)
	}
}

// orderedTransport records call ordering into a shared slice.
type orderedTransport struct {
	order *[]string
}

func (o *orderedTransport) Connect(context.Context) error {
	return nil
}

func (o *orderedTransport) SendReportedState(context.Context, []byte) error {
	*o.order = append(*o.order, "send")
	return nil
}

func TestHandleDesiredStateReportFailureDoesNotUndoStore(t *testing.T) {
	b := NewInteger("rate", nil)
	registry, err := NewRegistry(b)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	tr := &fakeTransport{sendErr: context.DeadlineExceeded}
	d := NewDispatcher(registry, NewReporter(tr, nil), nil)

	d.HandleDesiredState(context.Background(), []byte(`{"rate":{"value":5}}`))

	if n, ok := b.Integer(); !ok || n != 5 {
		t.Errorf("stored value = (%d, %v), want (5, true)", n, ok)
	}
	if b.State() != StateUnset {
		t.Errorf("state = %v after failed acknowledge, want Unset", b.State())
	}
	if d.Stats().PropertiesApplied != 1 {
		t.Errorf("stats = %+v", d.Stats())
	}
}

func TestHandleDesiredStateStringBorrowClearedEvenOnReportFailure(t *testing.T) {
	b := NewString("statusText", nil)
	registry, err := NewRegistry(b)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	tr := &fakeTransport{sendErr: context.DeadlineExceeded}
	d := NewDispatcher(registry, NewReporter(tr, nil), nil)

	d.HandleDesiredState(context.Background(), []byte(`{"statusText":{"value":"x"}}`))

	if _, ok := b.StringValue(); ok {
		t.Error("borrow must be released after dispatch even when the report fails")
	}
}
