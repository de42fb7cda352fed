package gpio

import (
	"errors"
	"testing"
)

func TestFakeLineSet(t *testing.T) {
	f := NewFakeLine()

	if f.On() {
		t.Error("new line should be off")
	}

	if err := f.Set(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.On() {
		t.Error("line should be on")
	}

	if err := f.Set(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.On() {
		t.Error("line should be off")
	}

	if len(f.Levels) != 2 || !f.Levels[0] || f.Levels[1] {
		t.Errorf("expected levels [true false], got %v", f.Levels)
	}
}

func TestFakeLineSetError(t *testing.T) {
	f := NewFakeLine()
	f.SetError = errors.New("line busy")

	if err := f.Set(true); err == nil {
		t.Error("expected error")
	}
	if len(f.Levels) != 0 {
		t.Error("failed set should not be recorded")
	}
}

func TestFakeLineCloseAndReset(t *testing.T) {
	f := NewFakeLine()
	f.Set(true)

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("expected Closed to be true")
	}

	f.Reset()
	if f.Closed || len(f.Levels) != 0 {
		t.Error("reset should clear state")
	}
}

func TestFakeLineImplementsLine(t *testing.T) {
	var _ Line = NewFakeLine()
}
