package main

import (
	"fmt"
	"time"

	"github.com/sweeney/captouch/internal/hw"
)

// Oscillator crossings per timebase tick. An idle electrode counts 40 per
// low-frequency window and a firm touch halves that.
const (
	idleCrossings    = 10
	touchedCrossings = 5
	// rampCrossings is the deepest point of a ramp touch.
	rampCrossings = 4
)

// profile describes a synthetic finger. Each period ends with a touch of
// length hold, so the sensor settles and calibrates before the first one.
type profile struct {
	name   string
	period time.Duration
	hold   time.Duration
}

func parseProfile(name string, period, hold time.Duration) (profile, error) {
	p := profile{name: name, period: period, hold: hold}
	switch name {
	case "idle":
		return p, nil
	case "periodic", "ramp":
	default:
		return profile{}, fmt.Errorf("unknown profile %q", name)
	}
	if period <= 0 {
		return profile{}, fmt.Errorf("touch period must be positive, got %v", period)
	}
	if hold <= 0 || hold >= period {
		return profile{}, fmt.Errorf("touch hold must be between 0 and the period, got %v", hold)
	}
	return p, nil
}

// crossings returns the oscillator speed at the given time since start.
func (p profile) crossings(elapsed time.Duration) int {
	if p.name == "idle" {
		return idleCrossings
	}
	into := elapsed%p.period - (p.period - p.hold)
	if into < 0 {
		return idleCrossings
	}
	if p.name == "periodic" {
		return touchedCrossings
	}

	// Press in to the deepest point halfway through the hold, then ease off.
	half := p.hold / 2
	if into > half {
		into = p.hold - into
	}
	depth := int64(idleCrossings - rampCrossings)
	return idleCrossings - int(depth*int64(into)/int64(half))
}

// simulator advances the peripheral model in step with wall time.
type simulator struct {
	sim     *hw.Sim
	profile profile
	start   time.Time
	ticks   int64

	// afterStep runs after each advance. Tests use it to drain the work
	// queue on the loop goroutine.
	afterStep func()
}

func (s *simulator) begin(t time.Time) {
	s.start = t
	s.ticks = 0
	s.sim.SetCrossingsPerTick(s.profile.crossings(0))
}

// advance steps the timebase up to time t.
func (s *simulator) advance(t time.Time) {
	elapsed := t.Sub(s.start)
	if elapsed < 0 {
		return
	}
	s.sim.SetCrossingsPerTick(s.profile.crossings(elapsed))
	want := ticksAt(elapsed)
	if want > s.ticks {
		s.sim.Step(int(want - s.ticks))
		s.ticks = want
	}
	if s.afterStep != nil {
		s.afterStep()
	}
}

// ticksAt converts elapsed time to timebase ticks without overflowing on
// long runs.
func ticksAt(d time.Duration) int64 {
	sec := int64(d / time.Second)
	rem := int64(d % time.Second)
	return sec*hw.RTCFrequency + rem*hw.RTCFrequency/int64(time.Second)
}
