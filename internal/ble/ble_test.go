package ble

import (
	"errors"
	"testing"

	"github.com/sweeney/captouch/internal/captouch"
)

type fakeChar struct {
	writes [][]byte
	err    error
}

func (f *fakeChar) Write(p []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}

func TestNotifyWithoutCentral(t *testing.T) {
	char := &fakeChar{}
	s := NewSink(char)

	if err := s.Notify([]byte{1, 2}); !errors.Is(err, captouch.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if len(char.writes) != 0 {
		t.Errorf("nothing should be written, got %d writes", len(char.writes))
	}
}

func TestNotifyConnected(t *testing.T) {
	char := &fakeChar{}
	s := NewSink(char)
	s.SetConnected(true)

	rec := captouch.Record{Raw: 2500, Filtered: 2483, Transformed: 70}
	if err := s.Notify(rec.Bytes()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(char.writes) != 1 || len(char.writes[0]) != captouch.RecordSize {
		t.Fatalf("unexpected writes: %v", char.writes)
	}
	if char.writes[0][0] != 0xC4 || char.writes[0][1] != 0x09 {
		t.Errorf("raw count not little endian: %x", char.writes[0])
	}
}

func TestNotifyNotSubscribed(t *testing.T) {
	char := &fakeChar{err: errors.New("error code 8")}
	s := NewSink(char)
	s.SetConnected(true)

	err := s.Notify([]byte{1, 2})
	if !errors.Is(err, captouch.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestDisconnectStopsNotifications(t *testing.T) {
	char := &fakeChar{}
	s := NewSink(char)
	s.SetConnected(true)
	s.Notify([]byte{1})
	s.SetConnected(false)

	if s.Connected() {
		t.Error("expected disconnected")
	}
	if err := s.Notify([]byte{2}); !errors.Is(err, captouch.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if len(char.writes) != 1 {
		t.Errorf("expected 1 write, got %d", len(char.writes))
	}
}
