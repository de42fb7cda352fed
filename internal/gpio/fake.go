package gpio

import "sync"

// FakeLine is a test double that records the levels it was driven to.
type FakeLine struct {
	mu sync.Mutex

	// Levels contains every level passed to Set, in order.
	Levels []bool

	// Closed tracks if Close was called.
	Closed bool

	// SetError, if set, will be returned by Set.
	SetError error
}

// NewFakeLine creates a FakeLine.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// Set records the level.
func (f *FakeLine) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}
	f.Levels = append(f.Levels, on)
	return nil
}

// On reports the last level set.
func (f *FakeLine) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Levels) > 0 && f.Levels[len(f.Levels)-1]
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset clears recorded levels.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Levels = nil
	f.Closed = false
	f.SetError = nil
}
