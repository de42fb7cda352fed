// Package hw provides register-level access to the peripherals used by the
// capacitive touch front end: comparator, counter, real-time clock, event
// generator unit and the programmable peripheral interconnect.
// The nrf52 implementation writes the real registers.
// The Sim implementation models them in memory so that the sensing pipeline
// can run and be tested without hardware.
package hw

// Endpoint is the address of an event or task register. Interconnect
// channels connect an event endpoint to one or two task endpoints.
type Endpoint uintptr

// RTCFrequency is the tick rate of the low-power real-time clock with a zero
// prescaler.
const RTCFrequency = 32768

// ComparatorConfig describes the oscillator set-up of the comparator.
type ComparatorConfig struct {
	// ThresholdLow and ThresholdHigh are the hysteresis thresholds in 1/64
	// steps of the reference rail.
	ThresholdLow  uint32
	ThresholdHigh uint32
	// CurrentSource selects the ISOURCE magnitude (0 = off, 1 = 2.5uA,
	// 2 = 5uA, 3 = 10uA).
	CurrentSource uint32
}

// Comparator is the analog comparator.
type Comparator interface {
	// SetPin selects the analog input (COMP PSEL value).
	SetPin(psel uint32)
	// Configure sets single-ended mode, reference and thresholds.
	Configure(cfg ComparatorConfig)
	Enable()
	Disable()
	Start()
	Stop()

	EventCross() Endpoint
	TaskStart() Endpoint
	TaskStop() Endpoint
}

// Counter is a timer running in low-power counter mode.
type Counter interface {
	// ConfigureCounter selects 32-bit low-power counter mode.
	ConfigureCounter()
	Start()
	Stop()
	Clear()
	CC(i int) uint32
	SetCC(i int, v uint32)

	TaskCount() Endpoint
	TaskClear() Endpoint
	TaskCapture(i int) Endpoint
	EventCompare(i int) Endpoint
}

// Timebase is the low-power real-time clock.
type Timebase interface {
	// EnableCompareEvents routes the given compare events to the interconnect.
	EnableCompareEvents(idx ...int)
	SetCC(i int, v uint32)
	Start()
	Stop()
	Clear()

	TaskClear() Endpoint
	EventCompare(i int) Endpoint
}

// EventUnit is the event generator unit used to turn an interconnect event
// into a CPU interrupt.
type EventUnit interface {
	// EnableInterrupt installs isr for the triggered event idx and enables
	// the interrupt. isr runs in interrupt context.
	EnableInterrupt(idx int, isr func())
	TaskTrigger(idx int) Endpoint
}

// Interconnect is the programmable peripheral interconnect.
type Interconnect interface {
	Channels() int
	Groups() int

	ChannelEnabled(ch int) bool
	EnableChannel(ch int)
	DisableChannel(ch int)
	Endpoints(ch int) (eep, tep Endpoint)
	SetEndpoints(ch int, eep, tep Endpoint)
	Fork(ch int) Endpoint
	SetFork(ch int, tep Endpoint)

	Group(g int) uint32
	SetGroup(g int, mask uint32)
	TaskGroupEnable(g int) Endpoint
	TaskGroupDisable(g int) Endpoint
}

// Peripherals is the set of register blocks owned by one touch sensor.
type Peripherals struct {
	Comparator   Comparator
	Counter      Counter
	Timebase     Timebase
	EventUnit    EventUnit
	Interconnect Interconnect
}
