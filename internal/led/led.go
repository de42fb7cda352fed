// Package led flashes an indicator line.
package led

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/captouch/internal/gpio"
	"github.com/sweeney/captouch/internal/work"
)

// FlashDuration is how long Flash keeps the line on.
const FlashDuration = 20 * time.Millisecond

// Blinker turns a line on briefly. Flash never blocks.
type Blinker struct {
	line  gpio.Line
	clock work.Clock
	d     time.Duration

	mu    sync.Mutex
	timer work.Timer
}

// NewBlinker creates a blinker on line. Timing uses clock.
func NewBlinker(line gpio.Line, clock work.Clock) *Blinker {
	return &Blinker{line: line, clock: clock, d: FlashDuration}
}

// Flash turns the line on and schedules it off. A flash while lit extends it.
func (b *Blinker) Flash() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	} else if err := b.line.Set(true); err != nil {
		log.Printf("led: warning: %v", err)
		return
	}
	b.timer = b.clock.AfterFunc(b.d, b.off)
}

func (b *Blinker) off() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timer = nil
	if err := b.line.Set(false); err != nil {
		log.Printf("led: warning: %v", err)
	}
}
