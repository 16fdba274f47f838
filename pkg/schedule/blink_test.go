package schedule

import (
	"testing"
	"time"
)

func TestNewBlinkTableDefaults(t *testing.T) {
	tbl := NewBlinkTable()

	if got := tbl.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
	if got := tbl.Index(); got != DefaultBlinkIndex {
		t.Errorf("Index() = %d, want %d", got, DefaultBlinkIndex)
	}
	if got := tbl.Current(); got != 500*time.Millisecond {
		t.Errorf("Current() = %v, want 500ms", got)
	}
}

func TestNewTableValidation(t *testing.T) {
	if _, err := NewTable(nil, 0); err != ErrEmptyTable {
		t.Errorf("NewTable(nil) error = %v, want ErrEmptyTable", err)
	}
}

func TestTableCycleWraps(t *testing.T) {
	tbl := NewBlinkTable()
	intervals := DefaultBlinkIntervals()

	// Starting at index 2, a full loop visits 3, 4, 0, 1, 2.
	wantOrder := []int{3, 4, 0, 1, 2}
	for _, want := range wantOrder {
		got := tbl.Cycle()
		if tbl.Index() != want {
			t.Fatalf("Cycle() landed on index %d, want %d", tbl.Index(), want)
		}
		if got != intervals[want] {
			t.Fatalf("Cycle() = %v, want %v", got, intervals[want])
		}
	}
}

func TestTableSetWraps(t *testing.T) {
	tbl := NewBlinkTable()
	intervals := DefaultBlinkIntervals()

	tests := []struct {
		name  string
		index int
		want  int
	}{
		{"InRange", 1, 1},
		{"Zero", 0, 0},
		{"Last", 4, 4},
		{"WrapsForward", 5, 0},
		{"WrapsFarForward", 12, 2},
		{"WrapsNegative", -1, 4},
		{"WrapsFarNegative", -7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tbl.Set(tt.index)
			if tbl.Index() != tt.want {
				t.Errorf("Set(%d) landed on index %d, want %d", tt.index, tbl.Index(), tt.want)
			}
			if got != intervals[tt.want] {
				t.Errorf("Set(%d) = %v, want %v", tt.index, got, intervals[tt.want])
			}
		})
	}
}

func TestNewTableIndexNormalized(t *testing.T) {
	tbl, err := NewTable(DefaultBlinkIntervals(), 7)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	if got := tbl.Index(); got != 2 {
		t.Errorf("Index() = %d, want 2", got)
	}
}
