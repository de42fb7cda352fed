package work

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubmitCoalesces(t *testing.T) {
	q := NewQueue(4, NewFakeClock())
	runs := 0
	it := q.NewItem(func() { runs++ })

	if !it.Submit() {
		t.Fatal("first submit should queue")
	}
	if it.Submit() {
		t.Error("second submit should coalesce while pending")
	}
	if !it.Pending() {
		t.Error("item should be pending")
	}

	if n := q.RunPending(); n != 1 {
		t.Errorf("expected 1 item run, got %d", n)
	}
	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}
	if it.Pending() {
		t.Error("item should not be pending after running")
	}
}

func TestSubmitOrder(t *testing.T) {
	q := NewQueue(4, NewFakeClock())
	var order []string
	a := q.NewItem(func() { order = append(order, "a") })
	b := q.NewItem(func() { order = append(order, "b") })

	b.Submit()
	a.Submit()
	q.RunPending()

	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("expected FIFO order [b a], got %v", order)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	q := NewQueue(1, NewFakeClock())
	a := q.NewItem(func() {})
	b := q.NewItem(func() {})

	a.Submit()
	if b.Submit() {
		t.Error("submit to a full queue should fail")
	}
	if b.Pending() {
		t.Error("dropped item should not be pending")
	}
}

func TestItemCanResubmitItself(t *testing.T) {
	q := NewQueue(4, NewFakeClock())
	runs := 0
	var it *Item
	it = q.NewItem(func() {
		runs++
		if runs < 3 {
			it.Submit()
		}
	})
	it.Submit()

	if n := q.RunPending(); n != 3 {
		t.Errorf("expected 3 runs through RunPending, got %d", n)
	}
}

func TestCancelSkipsQueuedItem(t *testing.T) {
	q := NewQueue(4, NewFakeClock())
	runs := 0
	it := q.NewItem(func() { runs++ })

	it.Submit()
	it.Cancel()
	q.RunPending()
	if runs != 0 {
		t.Errorf("cancelled item ran %d times", runs)
	}

	// Resubmitting after cancel runs exactly once.
	it.Submit()
	q.RunPending()
	if runs != 1 {
		t.Errorf("expected 1 run after resubmit, got %d", runs)
	}
}

func TestDelayedFiresAfterDelay(t *testing.T) {
	clock := NewFakeClock()
	q := NewQueue(4, clock)
	runs := 0
	d := q.NewDelayed(func() { runs++ })

	if !d.Schedule(100 * time.Millisecond) {
		t.Fatal("schedule should succeed")
	}
	if d.Schedule(10 * time.Millisecond) {
		t.Error("scheduling an already scheduled item should be a no-op")
	}

	clock.Advance(99 * time.Millisecond)
	q.RunPending()
	if runs != 0 {
		t.Fatalf("ran before delay elapsed")
	}

	clock.Advance(time.Millisecond)
	if !d.Scheduled() {
		t.Error("item should be pending after its timer fired")
	}
	q.RunPending()
	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}
	if d.Scheduled() {
		t.Error("item should be idle after running")
	}
}

func TestDelayedZeroDelaySubmitsNow(t *testing.T) {
	q := NewQueue(4, NewFakeClock())
	runs := 0
	d := q.NewDelayed(func() { runs++ })

	d.Schedule(0)
	q.RunPending()
	if runs != 1 {
		t.Errorf("expected immediate run, got %d", runs)
	}
}

func TestDelayedCancelBeforeFire(t *testing.T) {
	clock := NewFakeClock()
	q := NewQueue(4, clock)
	runs := 0
	d := q.NewDelayed(func() { runs++ })

	d.Schedule(time.Second)
	d.Cancel()
	clock.Advance(2 * time.Second)
	q.RunPending()

	if runs != 0 {
		t.Errorf("cancelled item ran %d times", runs)
	}
	if clock.Pending() != 0 {
		t.Errorf("expected no live timers, got %d", clock.Pending())
	}
}

func TestDelayedCancelAfterFireBeforeRun(t *testing.T) {
	clock := NewFakeClock()
	q := NewQueue(4, clock)
	runs := 0
	d := q.NewDelayed(func() { runs++ })

	d.Schedule(time.Second)
	clock.Advance(time.Second) // now queued
	d.Cancel()
	q.RunPending()

	if runs != 0 {
		t.Errorf("cancelled item ran %d times", runs)
	}
}

func TestDelayedReschedulesFromHandler(t *testing.T) {
	clock := NewFakeClock()
	q := NewQueue(4, clock)
	var at []time.Duration
	var d *Delayed
	d = q.NewDelayed(func() {
		at = append(at, clock.Elapsed())
		d.Schedule(time.Second)
	})

	d.Schedule(time.Second)
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		q.RunPending()
	}

	if len(at) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(at))
	}
	for i, v := range at {
		if want := time.Duration(i+1) * time.Second; v != want {
			t.Errorf("run %d at %v, want %v", i, v, want)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	q := NewQueue(4, RealClock)
	done := make(chan struct{})
	it := q.NewItem(func() { close(done) })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx) }()

	it.Submit()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("item did not run")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
