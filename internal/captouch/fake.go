package captouch

import "sync"

// FakeSink records notified records for test assertions.
type FakeSink struct {
	mu sync.Mutex

	// Payloads contains every accepted payload.
	Payloads [][]byte

	// NotifyError, if set, is returned by Notify and the payload dropped.
	NotifyError error
}

// NewFakeSink creates a FakeSink for testing.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Notify records the payload.
func (f *FakeSink) Notify(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.NotifyError != nil {
		return f.NotifyError
	}
	f.Payloads = append(f.Payloads, append([]byte(nil), b...))
	return nil
}

// Count returns the number of accepted payloads.
func (f *FakeSink) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Payloads)
}

// FixedBoard is a Board with a fixed comparator pin.
type FixedBoard struct {
	Pin       uint32
	Connected bool
}

// ComparatorPin returns the configured pin.
func (b FixedBoard) ComparatorPin() (uint32, bool) {
	return b.Pin, b.Connected
}
