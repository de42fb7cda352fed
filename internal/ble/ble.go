// Package ble relays telemetry records to a connected central as
// notifications on a custom GATT characteristic.
package ble

import (
	"fmt"
	"sync"

	"github.com/sweeney/captouch/internal/captouch"
)

// UUIDs of the telemetry service and its notify characteristic.
const (
	ServiceUUID        = "03b80e5a-ffff-4b33-a751-6ce34ec4c700"
	CharacteristicUUID = "03b80e5a-ffff-ffff-a751-6ce34ec4c700"
)

// Notifier sends a notification to subscribed centrals.
type Notifier interface {
	Write(p []byte) (int, error)
}

// Sink implements captouch.Sink on a notify characteristic.
type Sink struct {
	char Notifier

	mu        sync.Mutex
	connected bool
}

// NewSink creates a disconnected sink writing to char.
func NewSink(char Notifier) *Sink {
	return &Sink{char: char}
}

// SetConnected records whether a central is connected. Call it from the
// adapter's connect handler.
func (s *Sink) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// Connected reports whether a central is connected.
func (s *Sink) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Notify sends one record. It returns captouch.ErrNotConnected without a
// central and captouch.ErrInvalidState when the central has not enabled
// notifications or the stack refuses the write.
func (s *Sink) Notify(b []byte) error {
	if !s.Connected() {
		return captouch.ErrNotConnected
	}
	if _, err := s.char.Write(b); err != nil {
		return fmt.Errorf("%w: %v", captouch.ErrInvalidState, err)
	}
	return nil
}
