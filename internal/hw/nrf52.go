//go:build nrf52

package hw

import (
	"device/nrf"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// NRF52 returns the register blocks used for sensing on nRF52832:
// COMP, TIMER2 as counter, RTC2 as timebase, EGU2 and PPI.
func NRF52() Peripherals {
	return Peripherals{
		Comparator:   nrfComparator{},
		Counter:      nrfCounter{},
		Timebase:     nrfTimebase{},
		EventUnit:    nrfEventUnit{},
		Interconnect: nrfInterconnect{},
	}
}

// UICRCustomer reads UICR CUSTOMER[0], which carries the board version.
func UICRCustomer() uint32 {
	return nrf.UICR.CUSTOMER[0].Get()
}

func addr(r *volatile.Register32) Endpoint {
	return Endpoint(uintptr(unsafe.Pointer(r)))
}

type nrfComparator struct{}

func (nrfComparator) SetPin(psel uint32) { nrf.COMP.PSEL.Set(psel) }

func (nrfComparator) Configure(cfg ComparatorConfig) {
	nrf.COMP.REFSEL.Set(nrf.COMP_REFSEL_REFSEL_VDD << nrf.COMP_REFSEL_REFSEL_Pos)
	nrf.COMP.TH.Set(cfg.ThresholdHigh<<nrf.COMP_TH_THUP_Pos | cfg.ThresholdLow<<nrf.COMP_TH_THDOWN_Pos)
	nrf.COMP.MODE.Set(nrf.COMP_MODE_MAIN_SE<<nrf.COMP_MODE_MAIN_Pos | nrf.COMP_MODE_SP_Low<<nrf.COMP_MODE_SP_Pos)
	nrf.COMP.ISOURCE.Set(cfg.CurrentSource << nrf.COMP_ISOURCE_ISOURCE_Pos)
}

func (nrfComparator) Enable() {
	nrf.COMP.ENABLE.Set(nrf.COMP_ENABLE_ENABLE_Enabled << nrf.COMP_ENABLE_ENABLE_Pos)
}

func (nrfComparator) Disable() {
	nrf.COMP.ENABLE.Set(nrf.COMP_ENABLE_ENABLE_Disabled << nrf.COMP_ENABLE_ENABLE_Pos)
}

func (nrfComparator) Start() { nrf.COMP.TASKS_START.Set(1) }
func (nrfComparator) Stop()  { nrf.COMP.TASKS_STOP.Set(1) }

func (nrfComparator) EventCross() Endpoint { return addr(&nrf.COMP.EVENTS_CROSS) }
func (nrfComparator) TaskStart() Endpoint  { return addr(&nrf.COMP.TASKS_START) }
func (nrfComparator) TaskStop() Endpoint   { return addr(&nrf.COMP.TASKS_STOP) }

type nrfCounter struct{}

func (nrfCounter) ConfigureCounter() {
	nrf.TIMER2.MODE.Set(nrf.TIMER_MODE_MODE_LowPowerCounter << nrf.TIMER_MODE_MODE_Pos)
	nrf.TIMER2.BITMODE.Set(nrf.TIMER_BITMODE_BITMODE_32Bit << nrf.TIMER_BITMODE_BITMODE_Pos)
}

func (nrfCounter) Start()                { nrf.TIMER2.TASKS_START.Set(1) }
func (nrfCounter) Stop()                 { nrf.TIMER2.TASKS_STOP.Set(1) }
func (nrfCounter) Clear()                { nrf.TIMER2.TASKS_CLEAR.Set(1) }
func (nrfCounter) CC(i int) uint32       { return nrf.TIMER2.CC[i].Get() }
func (nrfCounter) SetCC(i int, v uint32) { nrf.TIMER2.CC[i].Set(v) }

func (nrfCounter) TaskCount() Endpoint         { return addr(&nrf.TIMER2.TASKS_COUNT) }
func (nrfCounter) TaskClear() Endpoint         { return addr(&nrf.TIMER2.TASKS_CLEAR) }
func (nrfCounter) TaskCapture(i int) Endpoint  { return addr(&nrf.TIMER2.TASKS_CAPTURE[i]) }
func (nrfCounter) EventCompare(i int) Endpoint { return addr(&nrf.TIMER2.EVENTS_COMPARE[i]) }

type nrfTimebase struct{}

func (nrfTimebase) EnableCompareEvents(idx ...int) {
	var mask uint32
	for _, i := range idx {
		mask |= 1 << (nrf.RTC_EVTENSET_COMPARE0_Pos + uint32(i))
	}
	nrf.RTC2.EVTENSET.Set(mask)
}

func (nrfTimebase) SetCC(i int, v uint32) { nrf.RTC2.CC[i].Set(v) }
func (nrfTimebase) Start()                { nrf.RTC2.TASKS_START.Set(1) }
func (nrfTimebase) Stop()                 { nrf.RTC2.TASKS_STOP.Set(1) }
func (nrfTimebase) Clear()                { nrf.RTC2.TASKS_CLEAR.Set(1) }

func (nrfTimebase) TaskClear() Endpoint         { return addr(&nrf.RTC2.TASKS_CLEAR) }
func (nrfTimebase) EventCompare(i int) Endpoint { return addr(&nrf.RTC2.EVENTS_COMPARE[i]) }

// eguHandlers is indexed by triggered event. interrupt.New needs a top-level
// handler, so the installed callbacks live here.
var eguHandlers [16]func()

func eguIRQ(interrupt.Interrupt) {
	for i, isr := range eguHandlers {
		if isr == nil || nrf.EGU2.EVENTS_TRIGGERED[i].Get() == 0 {
			continue
		}
		nrf.EGU2.EVENTS_TRIGGERED[i].Set(0)
		isr()
	}
}

type nrfEventUnit struct{}

func (nrfEventUnit) EnableInterrupt(idx int, isr func()) {
	eguHandlers[idx] = isr
	nrf.EGU2.INTENSET.Set(1 << uint32(idx))
	intr := interrupt.New(nrf.IRQ_SWI2_EGU2, eguIRQ)
	intr.SetPriority(0xc0)
	intr.Enable()
}

func (nrfEventUnit) TaskTrigger(idx int) Endpoint { return addr(&nrf.EGU2.TASKS_TRIGGER[idx]) }

type nrfInterconnect struct{}

func (nrfInterconnect) Channels() int { return len(nrf.PPI.CH) }
func (nrfInterconnect) Groups() int   { return len(nrf.PPI.CHG) }

func (nrfInterconnect) ChannelEnabled(ch int) bool { return nrf.PPI.CHEN.Get()&(1<<uint32(ch)) != 0 }
func (nrfInterconnect) EnableChannel(ch int)       { nrf.PPI.CHENSET.Set(1 << uint32(ch)) }
func (nrfInterconnect) DisableChannel(ch int)      { nrf.PPI.CHENCLR.Set(1 << uint32(ch)) }

func (nrfInterconnect) Endpoints(ch int) (Endpoint, Endpoint) {
	return Endpoint(nrf.PPI.CH[ch].EEP.Get()), Endpoint(nrf.PPI.CH[ch].TEP.Get())
}

func (nrfInterconnect) SetEndpoints(ch int, eep, tep Endpoint) {
	nrf.PPI.CH[ch].EEP.Set(uint32(eep))
	nrf.PPI.CH[ch].TEP.Set(uint32(tep))
}

func (nrfInterconnect) Fork(ch int) Endpoint         { return Endpoint(nrf.PPI.FORK[ch].TEP.Get()) }
func (nrfInterconnect) SetFork(ch int, tep Endpoint) { nrf.PPI.FORK[ch].TEP.Set(uint32(tep)) }
func (nrfInterconnect) Group(g int) uint32           { return nrf.PPI.CHG[g].Get() }
func (nrfInterconnect) SetGroup(g int, mask uint32)  { nrf.PPI.CHG[g].Set(mask) }

func (nrfInterconnect) TaskGroupEnable(g int) Endpoint  { return addr(&nrf.PPI.TASKS_CHG[g].EN) }
func (nrfInterconnect) TaskGroupDisable(g int) Endpoint { return addr(&nrf.PPI.TASKS_CHG[g].DIS) }
