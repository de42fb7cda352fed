package ppi

import (
	"strings"
	"testing"

	"github.com/sweeney/captouch/internal/hw"
)

func expectPanic(t *testing.T, contains string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q", contains)
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, contains) {
			t.Errorf("unexpected panic: %v", r)
		}
	}()
	fn()
}

func TestConnectEnablesChannel(t *testing.T) {
	sim := hw.NewSim()
	p := sim.Peripherals()
	a := New(p.Interconnect)

	ch := a.Connect(p.Comparator.EventCross(), p.Counter.TaskCount())
	if ch != 0 {
		t.Errorf("expected first channel 0, got %d", ch)
	}
	if !p.Interconnect.ChannelEnabled(ch) {
		t.Error("channel should be enabled on allocation")
	}
	eep, tep := p.Interconnect.Endpoints(ch)
	if eep != p.Comparator.EventCross() || tep != p.Counter.TaskCount() {
		t.Errorf("endpoints not wired: got (%x, %x)", eep, tep)
	}

	ch2 := a.Connect(p.Timebase.EventCompare(0), p.Comparator.TaskStart())
	if ch2 != 1 {
		t.Errorf("expected second channel 1, got %d", ch2)
	}
}

func TestConnectSkipsChannelsInUse(t *testing.T) {
	sim := hw.NewSim()
	p := sim.Peripherals()

	// Channel 0 wired by someone else.
	p.Interconnect.SetEndpoints(0, p.Timebase.EventCompare(2), p.Timebase.TaskClear())
	// Channel 1 enabled with no endpoints.
	p.Interconnect.EnableChannel(1)

	a := New(p.Interconnect)
	ch := a.Connect(p.Comparator.EventCross(), p.Counter.TaskCount())
	if ch != 2 {
		t.Errorf("expected channel 2, got %d", ch)
	}
}

func TestConnectExhaustionPanics(t *testing.T) {
	sim := hw.NewSimSized(3, 1)
	p := sim.Peripherals()
	a := New(p.Interconnect)

	for i := 0; i < 3; i++ {
		a.Connect(p.Comparator.EventCross(), p.Counter.TaskCount())
	}
	expectPanic(t, "no available channel", func() {
		a.Connect(p.Comparator.EventCross(), p.Counter.TaskCount())
	})
}

func TestNewGroup(t *testing.T) {
	sim := hw.NewSimSized(20, 3)
	p := sim.Peripherals()
	p.Interconnect.SetGroup(1, 0x1) // pre-existing group

	a := New(p.Interconnect)
	if g := a.NewGroup(); g != 0 {
		t.Errorf("expected group 0, got %d", g)
	}
	if g := a.NewGroup(); g != 2 {
		t.Errorf("expected group 2 (1 is taken), got %d", g)
	}
	expectPanic(t, "no available group", func() { a.NewGroup() })
}

func TestForkOncePerChannel(t *testing.T) {
	sim := hw.NewSim()
	p := sim.Peripherals()
	a := New(p.Interconnect)

	ch := a.Connect(p.Timebase.EventCompare(0), p.Comparator.TaskStart())
	a.Fork(ch, p.Counter.TaskClear())
	if got := p.Interconnect.Fork(ch); got != p.Counter.TaskClear() {
		t.Errorf("fork not set: got %x", got)
	}

	expectPanic(t, "already forked", func() { a.Fork(ch, p.Counter.TaskCount()) })
	expectPanic(t, "unallocated", func() { a.Fork(5, p.Counter.TaskCount()) })
}

func TestAddToGroup(t *testing.T) {
	sim := hw.NewSim()
	p := sim.Peripherals()
	a := New(p.Interconnect)

	g := a.NewGroup()
	a.AddToGroup(g, 3)
	a.AddToGroup(g, 5)
	if got := p.Interconnect.Group(g); got != 1<<3|1<<5 {
		t.Errorf("group mask: got %b", got)
	}
}
