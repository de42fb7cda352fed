// Package work runs deferred work outside interrupt context.
//
// An Item is a unit of work that is queued at most once: submitting an item
// that is already pending is a no-op, so interrupt handlers can submit freely
// without blocking. A Delayed item is submitted after a timeout and can be
// cancelled deterministically. All items of a Queue run one at a time on the
// goroutine draining it, so work never preempts other work.
package work

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDepth is the queue depth used by the sensor firmware.
const DefaultDepth = 16

// Clock schedules callbacks after a delay.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback created by a Clock.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock schedules with time.AfterFunc.
var RealClock Clock = realClock{}

// Queue is a FIFO of work items.
type Queue struct {
	items chan *Item
	clock Clock
}

// NewQueue creates a queue holding up to depth submitted items.
func NewQueue(depth int, clock Clock) *Queue {
	return &Queue{
		items: make(chan *Item, depth),
		clock: clock,
	}
}

// Run executes submitted items until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case it := <-q.items:
			q.exec(it)
		}
	}
}

// RunPending executes items until the queue is empty and returns how many
// ran. Items submitted by running items are executed too.
func (q *Queue) RunPending() int {
	n := 0
	for {
		select {
		case it := <-q.items:
			if q.exec(it) {
				n++
			}
		default:
			return n
		}
	}
}

func (q *Queue) exec(it *Item) bool {
	// A cancelled item stays in the channel; skip it.
	if !it.pending.CompareAndSwap(true, false) {
		return false
	}
	it.fn()
	return true
}

// Item is a unit of work bound to a queue.
type Item struct {
	q       *Queue
	fn      func()
	pending atomic.Bool
}

// NewItem creates a work item running fn.
func (q *Queue) NewItem(fn func()) *Item {
	return &Item{q: q, fn: fn}
}

// Submit queues the item. It returns false if the item was already pending
// or the queue is full. Submit never blocks and is safe in interrupt context.
func (it *Item) Submit() bool {
	if !it.pending.CompareAndSwap(false, true) {
		return false
	}
	select {
	case it.q.items <- it:
		return true
	default:
		it.pending.Store(false)
		log.Printf("work: warning: queue full, item dropped")
		return false
	}
}

// Pending reports whether the item is queued and has not started.
func (it *Item) Pending() bool {
	return it.pending.Load()
}

// Cancel removes a pending item. An item that is already running completes.
func (it *Item) Cancel() {
	it.pending.Store(false)
}

// Delayed is a work item submitted after a delay.
type Delayed struct {
	item  *Item
	mu    sync.Mutex
	timer Timer
	gen   uint64
}

// NewDelayed creates a delayable work item running fn.
func (q *Queue) NewDelayed(fn func()) *Delayed {
	return &Delayed{item: q.NewItem(fn)}
}

// Schedule submits the item after delay. It does nothing and returns false
// if the item is already scheduled or pending.
func (d *Delayed) Schedule(delay time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil || d.item.Pending() {
		return false
	}
	if delay <= 0 {
		return d.item.Submit()
	}
	gen := d.gen
	d.timer = d.item.q.clock.AfterFunc(delay, func() { d.fire(gen) })
	return true
}

func (d *Delayed) fire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen {
		return
	}
	d.timer = nil
	d.item.Submit()
}

// Scheduled reports whether the item is waiting on its delay or pending.
func (d *Delayed) Scheduled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil || d.item.Pending()
}

// Cancel stops the timer and removes the item from the queue. After Cancel
// returns the work will not start unless scheduled again.
func (d *Delayed) Cancel() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.item.Cancel()
}
