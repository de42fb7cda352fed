package captouch

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/sweeney/captouch/internal/hw"
	"github.com/sweeney/captouch/internal/ppi"
	"github.com/sweeney/captouch/internal/work"
)

// Stats counts sensor events since Init.
type Stats struct {
	Samples             uint64 // high-frequency samples processed
	Dropped             uint64 // samples lost to a full queue
	ZeroSamples         uint64
	ZeroDenominators    uint64
	Activations         uint64
	Releases            uint64
	Calibrations        uint64
	SkippedCalibrations uint64
	RejectedTransitions uint64
	SinkErrors          uint64
}

type counters struct {
	samples             atomic.Uint64
	dropped             atomic.Uint64
	zeroSamples         atomic.Uint64
	zeroDenominators    atomic.Uint64
	activations         atomic.Uint64
	releases            atomic.Uint64
	calibrations        atomic.Uint64
	skippedCalibrations atomic.Uint64
	rejectedTransitions atomic.Uint64
	sinkErrors          atomic.Uint64
}

// Sensor is a capacitive touch sensor driving one set of peripherals.
//
// Init is called once before the work queue starts. After that all state
// changes and sample processing run on the queue's goroutine; the interrupt
// handler only captures the count and submits work. State and Stats are safe
// to call from any goroutine.
type Sensor struct {
	cfg       Config
	hw        hw.Peripherals
	ppi       *ppi.Allocator
	board     Board
	sink      Sink
	indicator Indicator
	observer  Observer
	callback  func(uint8)

	state    atomic.Int32
	counters counters

	samples     chan uint16
	process     *work.Item
	start       *work.Item
	stop        *work.Item
	calStart    *work.Delayed
	calCapture  *work.Delayed
	dropsLogged uint64

	chActiveTrigger int
	chCalibrationLF int
	chCalibrationHF int

	cal        calibrator
	region     Region
	regionSet  bool
	filtered   uint16
	lastOutput int
	releaseRun int
}

// New creates a sensor on the given peripherals. Work runs on q.
func New(cfg Config, p hw.Peripherals, q *work.Queue, c Collaborators) *Sensor {
	s := &Sensor{
		cfg:        cfg,
		hw:         p,
		ppi:        ppi.New(p.Interconnect),
		board:      c.Board,
		sink:       c.Sink,
		indicator:  c.Indicator,
		observer:   c.Observer,
		lastOutput: -1,
	}
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = 1
	}
	s.samples = make(chan uint16, depth)
	s.process = q.NewItem(s.processSamples)
	s.start = q.NewItem(func() { s.request(StateAutonomousLowFrequency) })
	s.stop = q.NewItem(func() { s.request(StateOff) })
	s.calStart = q.NewDelayed(s.calibrationStart)
	s.calCapture = q.NewDelayed(s.calibrationCapture)
	return s
}

// Init configures the hardware and leaves the sensor off. cb receives the
// pressure value whenever it changes. Init returns ErrNotSupported when the
// board has no touch electrode; the sensor then ignores Start and Stop.
func (s *Sensor) Init(cb func(uint8)) error {
	if st := s.State(); st != StateUninitialized {
		return fmt.Errorf("captouch: init in state %s", st)
	}
	if cb == nil {
		return errors.New("captouch: nil callback")
	}
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("captouch: %w", err)
	}
	s.callback = cb

	pin, ok := s.board.ComparatorPin()
	if !ok {
		log.Printf("captouch: warning: no touch pin on this board")
		if err := s.setState(StateNotSupported); err != nil {
			return err
		}
		return ErrNotSupported
	}
	s.hw.Comparator.SetPin(pin)
	return s.setState(StateOff)
}

// Start requests autonomous low-frequency sensing. The transition runs on
// the work queue.
func (s *Sensor) Start() error { return s.submit(s.start) }

// Stop requests power down. The transition runs on the work queue.
func (s *Sensor) Stop() error { return s.submit(s.stop) }

func (s *Sensor) submit(it *work.Item) error {
	switch s.State() {
	case StateUninitialized:
		return ErrNotInitialized
	case StateNotSupported:
		return ErrNotSupported
	}
	it.Submit()
	return nil
}

// State returns the current state.
func (s *Sensor) State() State {
	return State(s.state.Load())
}

// Region returns the current counter region. Call from the work queue or
// after it has stopped.
func (s *Sensor) Region() Region {
	return s.region
}

// Stats returns a snapshot of the event counters.
func (s *Sensor) Stats() Stats {
	c := &s.counters
	return Stats{
		Samples:             c.samples.Load(),
		Dropped:             c.dropped.Load(),
		ZeroSamples:         c.zeroSamples.Load(),
		ZeroDenominators:    c.zeroDenominators.Load(),
		Activations:         c.activations.Load(),
		Releases:            c.releases.Load(),
		Calibrations:        c.calibrations.Load(),
		SkippedCalibrations: c.skippedCalibrations.Load(),
		RejectedTransitions: c.rejectedTransitions.Load(),
		SinkErrors:          c.sinkErrors.Load(),
	}
}

// request changes state from work context and logs the outcome.
func (s *Sensor) request(to State) {
	err := s.setState(to)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyInState):
		log.Printf("captouch: warning: %v", err)
	default:
		log.Printf("captouch: error: %v", err)
	}
}

// isr runs in interrupt context at the end of a window that stayed below
// the activation threshold, or at the end of every high-frequency window.
func (s *Sensor) isr() {
	v := uint16(s.hw.Counter.CC(ccSampleCapture))
	select {
	case s.samples <- v:
	default:
		s.counters.dropped.Add(1)
	}
	s.process.Submit()
}

func (s *Sensor) purge() {
	for {
		select {
		case <-s.samples:
		default:
			return
		}
	}
}

func (s *Sensor) processSamples() {
	if d := s.counters.dropped.Load(); d != s.dropsLogged {
		log.Printf("captouch: warning: sample queue full, %d samples dropped", d-s.dropsLogged)
		s.dropsLogged = d
	}

	for {
		var v uint16
		select {
		case v = <-s.samples:
		default:
			return
		}

		if v == 0 {
			log.Printf("captouch: warning: zero sample discarded")
			s.counters.zeroSamples.Add(1)
			continue
		}

		switch s.State() {
		case StateAutonomousLowFrequency:
			s.activate()
			return
		case StateHighFrequency:
			if s.sample(v) {
				return
			}
		}
	}
}

// activate switches to high-frequency sampling after a low-frequency window
// stayed below the activation threshold. Queued samples belong to the old
// window timing and are discarded.
func (s *Sensor) activate() {
	if err := s.setState(StateHighFrequency); err != nil {
		log.Printf("captouch: error: %v", err)
		return
	}
	s.counters.activations.Add(1)
	s.purge()
	s.releaseRun = 0
	if s.indicator != nil {
		s.indicator.Flash()
	}
}

// sample processes one high-frequency count. It returns true if the sensor
// released back to low-frequency mode.
func (s *Sensor) sample(v uint16) bool {
	s.filtered = lowPass(s.filtered, v, s.cfg.FilterAlpha)
	out, err := s.pressure(s.filtered)
	if err != nil {
		log.Printf("captouch: warning: sample %d skipped: %v", v, err)
		s.counters.zeroDenominators.Add(1)
		return false
	}
	s.counters.samples.Add(1)

	rec := Record{Raw: v, Filtered: s.filtered, Transformed: uint16(out)}
	if s.sink != nil {
		if err := s.sink.Notify(rec.Bytes()); err != nil {
			log.Printf("captouch: warning: sink rejected record: %v", err)
			s.counters.sinkErrors.Add(1)
		}
	}
	if s.observer != nil {
		s.observer.OnRecord(rec)
	}
	if int(out) != s.lastOutput {
		s.lastOutput = int(out)
		s.callback(out)
	}

	if s.cfg.ReleaseSamples <= 0 {
		return false
	}
	if out != 0 {
		s.releaseRun = 0
		return false
	}
	s.releaseRun++
	if s.releaseRun < s.cfg.ReleaseSamples {
		return false
	}
	return s.release()
}

// release returns to autonomous low-frequency sensing once the touch has
// been gone for ReleaseSamples windows.
func (s *Sensor) release() bool {
	if err := s.setState(StateAutonomousLowFrequency); err != nil {
		log.Printf("captouch: error: %v", err)
		return false
	}
	s.counters.releases.Add(1)
	s.purge()
	s.releaseRun = 0
	return true
}
