package captouch

// Counter compare/capture registers.
const (
	ccActiveTrigger = 0
	ccSampleCapture = 1
	ccCalibrationLF = 2
	ccCalibrationHF = 3
)

// Timebase compare registers.
const (
	rtcSampleStart = 0
	rtcSampleEnd   = 1
	rtcReset       = 2
)

const (
	// sampleStartTick is the timebase value that opens a window.
	sampleStartTick = 1
	// eguActivate is the event generator slot that interrupts the CPU.
	eguActivate = 0
)

// configure programs the front end and the counting pipeline. Nothing runs
// until the timebase is started.
func (s *Sensor) configure() {
	s.hw.Comparator.Configure(s.cfg.Comparator)
	s.hw.Counter.ConfigureCounter()

	s.hw.Timebase.EnableCompareEvents(rtcSampleStart, rtcSampleEnd, rtcReset)
	s.hw.Timebase.SetCC(rtcSampleStart, sampleStartTick)

	s.hw.EventUnit.EnableInterrupt(eguActivate, s.isr)

	s.connect()
}

// connect wires the interconnect.
//
// Every window the timebase starts the comparator, clears the counter and
// arms the sample group. The comparator crossings drive the counter. When the
// count reaches the activation threshold the sample group is disarmed, so
// only a window that stays below the threshold reaches the event generator
// at the end of the window, capturing the count and raising the interrupt.
// Independently, a count reaching a calibration register arms that mode's
// capture group, so each calibration register tracks the highest count seen.
func (s *Sensor) connect() {
	a := s.ppi
	comp := s.hw.Comparator
	ctr := s.hw.Counter
	rtc := s.hw.Timebase
	ic := s.hw.Interconnect

	sample := a.NewGroup()
	calLF := a.NewGroup()
	calHF := a.NewGroup()

	a.Connect(comp.EventCross(), ctr.TaskCount())

	s.chActiveTrigger = a.Connect(ctr.EventCompare(ccActiveTrigger), ic.TaskGroupDisable(sample))
	s.chCalibrationLF = a.Connect(ctr.EventCompare(ccCalibrationLF), ic.TaskGroupEnable(calLF))
	s.chCalibrationHF = a.Connect(ctr.EventCompare(ccCalibrationHF), ic.TaskGroupEnable(calHF))

	a.Connect(rtc.EventCompare(rtcSampleStart), comp.TaskStart())
	ch := a.Connect(rtc.EventCompare(rtcSampleStart), ic.TaskGroupEnable(sample))
	a.Fork(ch, ctr.TaskClear())
	ch = a.Connect(rtc.EventCompare(rtcSampleStart), ic.TaskGroupDisable(calLF))
	a.Fork(ch, ic.TaskGroupDisable(calHF))

	a.Connect(rtc.EventCompare(rtcSampleEnd), comp.TaskStop())
	a.AddToGroup(calLF, a.Connect(rtc.EventCompare(rtcSampleEnd), ctr.TaskCapture(ccCalibrationLF)))
	a.AddToGroup(calHF, a.Connect(rtc.EventCompare(rtcSampleEnd), ctr.TaskCapture(ccCalibrationHF)))
	ch = a.Connect(rtc.EventCompare(rtcSampleEnd), s.hw.EventUnit.TaskTrigger(eguActivate))
	a.Fork(ch, ctr.TaskCapture(ccSampleCapture))
	a.AddToGroup(sample, ch)

	a.Connect(rtc.EventCompare(rtcReset), rtc.TaskClear())
}

// powerUp starts the oscillator, counter and timebase.
func (s *Sensor) powerUp() {
	s.hw.Comparator.Enable()
	s.hw.Comparator.Start()
	s.hw.Counter.Start()
	s.hw.Timebase.Start()
}

// powerDown stops everything and clears the counters.
func (s *Sensor) powerDown() {
	s.hw.Timebase.Stop()
	s.hw.Counter.Stop()
	s.hw.Timebase.Clear()
	s.hw.Counter.Clear()
	s.hw.Comparator.Stop()
	s.hw.Comparator.Disable()
}

// lowFrequencyTiming arms the autonomous activation channel and the
// low-frequency calibration capture, and shortens the window.
func (s *Sensor) lowFrequencyTiming() {
	ic := s.hw.Interconnect
	rtc := s.hw.Timebase

	rtc.SetCC(rtcSampleEnd, sampleStartTick+s.cfg.WindowTicksLF)
	rtc.SetCC(rtcReset, s.cfg.ResetTicksLF)
	ic.EnableChannel(s.chActiveTrigger)
	ic.EnableChannel(s.chCalibrationLF)
	ic.DisableChannel(s.chCalibrationHF)
	rtc.Clear()
}

// highFrequencyTiming interrupts on every window and lengthens it.
func (s *Sensor) highFrequencyTiming() {
	ic := s.hw.Interconnect
	rtc := s.hw.Timebase

	ic.DisableChannel(s.chActiveTrigger)
	ic.EnableChannel(s.chCalibrationHF)
	ic.DisableChannel(s.chCalibrationLF)
	rtc.SetCC(rtcSampleEnd, sampleStartTick+s.cfg.WindowTicksHF)
	rtc.SetCC(rtcReset, s.cfg.ResetTicksHF)
	rtc.Clear()
}
