package captouch

import "log"

// minActivate is the lowest activation threshold. The counter compare event
// needs at least one count of headroom above the saturation threshold and a
// threshold below three would fire on the first crossings of every window.
const minActivate = 3

// Region is the counter range derived from a calibration value. A period
// count below Activate is a touch; at or below Saturate the touch is full
// pressure. Nominal is the untouched calibration value.
type Region struct {
	Nominal  uint32
	Activate uint32
	Saturate uint32
}

func computeRegion(point uint32, activateMargin, saturateMargin uint8) Region {
	r := Region{
		Nominal:  point,
		Activate: uint32(uint64(point) * uint64(activateMargin) >> 8),
		Saturate: uint32(uint64(point) * uint64(saturateMargin) >> 8),
	}
	if r.Activate < minActivate {
		r.Activate = minActivate
		r.Saturate = minActivate - 1
	}
	if r.Saturate >= r.Activate {
		r.Saturate = r.Activate - 1
	}
	return r
}

// setRegion recomputes the region for a new calibration value and programs
// the activation compare register. An unchanged value is not rewritten.
func (s *Sensor) setRegion(point uint32) {
	if s.regionSet && s.region.Nominal == point {
		return
	}
	s.region = computeRegion(point, s.cfg.ActivateMargin, s.cfg.SaturateMargin)
	s.regionSet = true
	s.hw.Counter.SetCC(ccActiveTrigger, s.region.Activate)

	log.Printf("captouch: region nominal=%d activate=%d saturate=%d",
		s.region.Nominal, s.region.Activate, s.region.Saturate)
	if s.observer != nil {
		s.observer.OnRegion(s.region)
	}
}
