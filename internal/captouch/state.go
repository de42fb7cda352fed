package captouch

import (
	"fmt"
	"log"
)

type transition struct {
	from, to State
}

// transitions lists every permitted state change and the reconfiguration it
// performs. Anything else is rejected.
var transitions = map[transition]func(*Sensor){
	{StateUninitialized, StateNotSupported}:           func(*Sensor) {},
	{StateUninitialized, StateOff}:                    (*Sensor).configure,
	{StateOff, StateAutonomousLowFrequency}:           (*Sensor).enterLowFrequencyFromOff,
	{StateHighFrequency, StateAutonomousLowFrequency}: (*Sensor).lowFrequencyTiming,
	{StateAutonomousLowFrequency, StateHighFrequency}: (*Sensor).highFrequencyTiming,
	{StateAutonomousLowFrequency, StateOff}:           (*Sensor).enterOff,
	{StateHighFrequency, StateOff}:                    (*Sensor).enterOff,
}

func (s *Sensor) enterLowFrequencyFromOff() {
	s.powerUp()
	s.setRegion(0)
	s.calStart.Schedule(s.cfg.CalibrationSettle)
	s.lowFrequencyTiming()
}

func (s *Sensor) enterOff() {
	s.calStart.Cancel()
	s.calCapture.Cancel()
	s.powerDown()
	s.purge()
	s.releaseRun = 0
}

// setState moves the sensor to state to. The state is unchanged when an
// error is returned.
func (s *Sensor) setState(to State) error {
	from := s.State()
	if from == to {
		return fmt.Errorf("%w %s", ErrAlreadyInState, to)
	}
	apply, ok := transitions[transition{from, to}]
	if !ok {
		s.counters.rejectedTransitions.Add(1)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	apply(s)
	s.state.Store(int32(to))

	log.Printf("captouch: state %s -> %s", from, to)
	if s.observer != nil {
		s.observer.OnState(to)
	}
	return nil
}
