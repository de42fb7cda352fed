package hw

import "sync"

const (
	simCounterCCs  = 4
	simTimebaseCCs = 4
	simEventUnits  = 16
	simRTCMask     = 0xFFFFFF // 24-bit counter

	// DefaultSimChannels and DefaultSimGroups match the nRF52832 interconnect.
	DefaultSimChannels = 20
	DefaultSimGroups   = 6
)

// Sim is an in-memory model of the sensing peripherals. Events are routed
// through the simulated interconnect exactly as configured, so the counting
// pipeline runs without CPU involvement and only the event generator unit
// raises interrupts.
//
// Sim is safe for concurrent use. Interrupt handlers run on the goroutine
// calling Step, after the tick that raised them, with no lock held.
type Sim struct {
	mu       sync.Mutex
	tasks    map[Endpoint]func()
	nextAddr Endpoint
	pending  []func()

	crossingsPerTick int

	comp    simComparator
	counter simCounter
	rtc     simTimebase
	egu     simEventUnit
	ppi     simInterconnect
}

// NewSim creates a simulator with the default interconnect size.
func NewSim() *Sim {
	return NewSimSized(DefaultSimChannels, DefaultSimGroups)
}

// NewSimSized creates a simulator with the given interconnect pool size.
func NewSimSized(channels, groups int) *Sim {
	s := &Sim{
		tasks:    make(map[Endpoint]func()),
		nextAddr: 0x40000000,
	}
	s.comp.sim = s
	s.counter.sim = s
	s.rtc.sim = s
	s.egu.sim = s
	s.ppi.sim = s
	s.ppi.ch = make([]simChannel, channels)
	s.ppi.groups = make([]uint32, groups)

	s.comp.eventCross = s.endpoint(nil)
	s.comp.taskStart = s.endpoint(func() { s.comp.started = true })
	s.comp.taskStop = s.endpoint(func() { s.comp.started = false })

	s.counter.taskCount = s.endpoint(s.counter.count)
	s.counter.taskClear = s.endpoint(func() { s.counter.value = 0 })
	for i := 0; i < simCounterCCs; i++ {
		i := i
		s.counter.taskCapture[i] = s.endpoint(func() { s.counter.capture(i) })
		s.counter.eventCompare[i] = s.endpoint(nil)
	}

	s.rtc.taskClear = s.endpoint(func() { s.rtc.value = 0 })
	for i := 0; i < simTimebaseCCs; i++ {
		s.rtc.eventCompare[i] = s.endpoint(nil)
	}

	for i := 0; i < simEventUnits; i++ {
		i := i
		s.egu.taskTrigger[i] = s.endpoint(func() { s.egu.trigger(i) })
	}

	for g := range s.ppi.groups {
		g := g
		s.ppi.taskEnable = append(s.ppi.taskEnable, s.endpoint(func() { s.ppi.chen |= s.ppi.groups[g] }))
		s.ppi.taskDisable = append(s.ppi.taskDisable, s.endpoint(func() { s.ppi.chen &^= s.ppi.groups[g] }))
	}
	return s
}

// Peripherals returns the simulated register blocks.
func (s *Sim) Peripherals() Peripherals {
	return Peripherals{
		Comparator:   &s.comp,
		Counter:      &s.counter,
		Timebase:     &s.rtc,
		EventUnit:    &s.egu,
		Interconnect: &s.ppi,
	}
}

// SetCrossingsPerTick sets how many comparator crossings the oscillator
// produces per timebase tick while running. Added electrode capacitance
// slows the oscillation, so a touch lowers this number.
func (s *Sim) SetCrossingsPerTick(n int) {
	s.mu.Lock()
	s.crossingsPerTick = n
	s.mu.Unlock()
}

// Step advances the timebase by the given number of ticks.
func (s *Sim) Step(ticks int) {
	for t := 0; t < ticks; t++ {
		s.mu.Lock()
		s.tick()
		isrs := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, isr := range isrs {
			isr()
		}
	}
}

func (s *Sim) tick() {
	if s.comp.enabled && s.comp.started {
		for i := 0; i < s.crossingsPerTick; i++ {
			s.signal(s.comp.eventCross)
		}
	}
	if !s.rtc.started {
		return
	}
	s.rtc.value = (s.rtc.value + 1) & simRTCMask
	var matched []Endpoint
	for i := 0; i < simTimebaseCCs; i++ {
		if s.rtc.evten&(1<<i) != 0 && s.rtc.cc[i] == s.rtc.value {
			matched = append(matched, s.rtc.eventCompare[i])
		}
	}
	for _, ep := range matched {
		s.signal(ep)
	}
}

func (s *Sim) endpoint(task func()) Endpoint {
	ep := s.nextAddr
	s.nextAddr += 4
	if task != nil {
		s.tasks[ep] = task
	}
	return ep
}

// signal delivers an event to every enabled channel listening on it.
// Channels are resolved before any task runs, as the hardware does.
func (s *Sim) signal(ep Endpoint) {
	var fire []Endpoint
	for i, ch := range s.ppi.ch {
		if s.ppi.chen&(1<<i) == 0 || ch.eep != ep {
			continue
		}
		fire = append(fire, ch.tep)
		if ch.fork != 0 {
			fire = append(fire, ch.fork)
		}
	}
	for _, tep := range fire {
		s.trigger(tep)
	}
}

func (s *Sim) trigger(ep Endpoint) {
	if task, ok := s.tasks[ep]; ok {
		task()
	}
}

// ComparatorRunning reports whether the oscillator is producing crossings.
func (s *Sim) ComparatorRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comp.enabled && s.comp.started
}

// ComparatorEnabled reports whether the comparator is powered.
func (s *Sim) ComparatorEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comp.enabled
}

// ComparatorPin returns the selected analog input.
func (s *Sim) ComparatorPin() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comp.psel
}

// ComparatorConfig returns the last applied comparator configuration.
func (s *Sim) ComparatorConfig() ComparatorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comp.cfg
}

// CounterRunning reports whether the counter accepts count tasks.
func (s *Sim) CounterRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.started
}

// CounterConfigured reports whether counter mode has been selected.
func (s *Sim) CounterConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.configured
}

// CounterValue returns the live counter value.
func (s *Sim) CounterValue() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.value
}

// CCWrites returns how many times software wrote counter compare register i.
func (s *Sim) CCWrites(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.writes[i]
}

// TimebaseRunning reports whether the real-time clock is ticking.
func (s *Sim) TimebaseRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rtc.started
}

// TimebaseValue returns the real-time clock counter.
func (s *Sim) TimebaseValue() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rtc.value
}

// TimebaseCC returns real-time clock compare register i.
func (s *Sim) TimebaseCC(i int) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rtc.cc[i]
}

type simComparator struct {
	sim        *Sim
	psel       uint32
	cfg        ComparatorConfig
	enabled    bool
	started    bool
	eventCross Endpoint
	taskStart  Endpoint
	taskStop   Endpoint
}

func (c *simComparator) SetPin(psel uint32) {
	c.sim.mu.Lock()
	c.psel = psel
	c.sim.mu.Unlock()
}

func (c *simComparator) Configure(cfg ComparatorConfig) {
	c.sim.mu.Lock()
	c.cfg = cfg
	c.sim.mu.Unlock()
}

func (c *simComparator) Enable()  { c.set(&c.enabled, true) }
func (c *simComparator) Disable() { c.set(&c.enabled, false) }
func (c *simComparator) Start()   { c.set(&c.started, true) }
func (c *simComparator) Stop()    { c.set(&c.started, false) }

func (c *simComparator) set(f *bool, v bool) {
	c.sim.mu.Lock()
	*f = v
	c.sim.mu.Unlock()
}

func (c *simComparator) EventCross() Endpoint { return c.eventCross }
func (c *simComparator) TaskStart() Endpoint  { return c.taskStart }
func (c *simComparator) TaskStop() Endpoint   { return c.taskStop }

type simCounter struct {
	sim          *Sim
	configured   bool
	started      bool
	value        uint32
	cc           [simCounterCCs]uint32
	writes       [simCounterCCs]int
	taskCount    Endpoint
	taskClear    Endpoint
	taskCapture  [simCounterCCs]Endpoint
	eventCompare [simCounterCCs]Endpoint
}

// count runs with the sim lock held.
func (c *simCounter) count() {
	if !c.started {
		return
	}
	c.value++
	var matched []Endpoint
	for i, v := range c.cc {
		if v == c.value {
			matched = append(matched, c.eventCompare[i])
		}
	}
	for _, ep := range matched {
		c.sim.signal(ep)
	}
}

func (c *simCounter) capture(i int) {
	c.cc[i] = c.value
}

func (c *simCounter) ConfigureCounter() {
	c.sim.mu.Lock()
	c.configured = true
	c.sim.mu.Unlock()
}

func (c *simCounter) Start() {
	c.sim.mu.Lock()
	c.started = true
	c.sim.mu.Unlock()
}

func (c *simCounter) Stop() {
	c.sim.mu.Lock()
	c.started = false
	c.sim.mu.Unlock()
}

func (c *simCounter) Clear() {
	c.sim.mu.Lock()
	c.value = 0
	c.sim.mu.Unlock()
}

func (c *simCounter) CC(i int) uint32 {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.cc[i]
}

func (c *simCounter) SetCC(i int, v uint32) {
	c.sim.mu.Lock()
	c.cc[i] = v
	c.writes[i]++
	c.sim.mu.Unlock()
}

func (c *simCounter) TaskCount() Endpoint         { return c.taskCount }
func (c *simCounter) TaskClear() Endpoint         { return c.taskClear }
func (c *simCounter) TaskCapture(i int) Endpoint  { return c.taskCapture[i] }
func (c *simCounter) EventCompare(i int) Endpoint { return c.eventCompare[i] }

type simTimebase struct {
	sim          *Sim
	started      bool
	value        uint32
	evten        uint32
	cc           [simTimebaseCCs]uint32
	taskClear    Endpoint
	eventCompare [simTimebaseCCs]Endpoint
}

func (r *simTimebase) EnableCompareEvents(idx ...int) {
	r.sim.mu.Lock()
	for _, i := range idx {
		r.evten |= 1 << i
	}
	r.sim.mu.Unlock()
}

func (r *simTimebase) SetCC(i int, v uint32) {
	r.sim.mu.Lock()
	r.cc[i] = v & simRTCMask
	r.sim.mu.Unlock()
}

func (r *simTimebase) Start() {
	r.sim.mu.Lock()
	r.started = true
	r.sim.mu.Unlock()
}

func (r *simTimebase) Stop() {
	r.sim.mu.Lock()
	r.started = false
	r.sim.mu.Unlock()
}

func (r *simTimebase) Clear() {
	r.sim.mu.Lock()
	r.value = 0
	r.sim.mu.Unlock()
}

func (r *simTimebase) TaskClear() Endpoint         { return r.taskClear }
func (r *simTimebase) EventCompare(i int) Endpoint { return r.eventCompare[i] }

type simEventUnit struct {
	sim         *Sim
	triggered   [simEventUnits]bool
	isr         [simEventUnits]func()
	taskTrigger [simEventUnits]Endpoint
}

// trigger runs with the sim lock held; the handler is deferred to the end of
// the tick.
func (e *simEventUnit) trigger(i int) {
	if e.triggered[i] {
		return
	}
	e.triggered[i] = true
	if e.isr[i] == nil {
		return
	}
	e.sim.pending = append(e.sim.pending, func() {
		e.sim.mu.Lock()
		e.triggered[i] = false
		isr := e.isr[i]
		e.sim.mu.Unlock()
		isr()
	})
}

func (e *simEventUnit) EnableInterrupt(idx int, isr func()) {
	e.sim.mu.Lock()
	e.isr[idx] = isr
	e.sim.mu.Unlock()
}

func (e *simEventUnit) TaskTrigger(idx int) Endpoint { return e.taskTrigger[idx] }

type simChannel struct {
	eep, tep, fork Endpoint
}

type simInterconnect struct {
	sim         *Sim
	ch          []simChannel
	chen        uint32
	groups      []uint32
	taskEnable  []Endpoint
	taskDisable []Endpoint
}

func (p *simInterconnect) Channels() int { return len(p.ch) }
func (p *simInterconnect) Groups() int   { return len(p.groups) }

func (p *simInterconnect) ChannelEnabled(ch int) bool {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	return p.chen&(1<<ch) != 0
}

func (p *simInterconnect) EnableChannel(ch int) {
	p.sim.mu.Lock()
	p.chen |= 1 << ch
	p.sim.mu.Unlock()
}

func (p *simInterconnect) DisableChannel(ch int) {
	p.sim.mu.Lock()
	p.chen &^= 1 << ch
	p.sim.mu.Unlock()
}

func (p *simInterconnect) Endpoints(ch int) (Endpoint, Endpoint) {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	return p.ch[ch].eep, p.ch[ch].tep
}

func (p *simInterconnect) SetEndpoints(ch int, eep, tep Endpoint) {
	p.sim.mu.Lock()
	p.ch[ch].eep = eep
	p.ch[ch].tep = tep
	p.sim.mu.Unlock()
}

func (p *simInterconnect) Fork(ch int) Endpoint {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	return p.ch[ch].fork
}

func (p *simInterconnect) SetFork(ch int, tep Endpoint) {
	p.sim.mu.Lock()
	p.ch[ch].fork = tep
	p.sim.mu.Unlock()
}

func (p *simInterconnect) Group(g int) uint32 {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	return p.groups[g]
}

func (p *simInterconnect) SetGroup(g int, mask uint32) {
	p.sim.mu.Lock()
	p.groups[g] = mask
	p.sim.mu.Unlock()
}

func (p *simInterconnect) TaskGroupEnable(g int) Endpoint  { return p.taskEnable[g] }
func (p *simInterconnect) TaskGroupDisable(g int) Endpoint { return p.taskDisable[g] }
