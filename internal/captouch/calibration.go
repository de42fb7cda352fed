package captouch

import (
	"log"
	"time"
)

const (
	calibrationPoints = 5
	// calibrationRank selects the median of the window once three captures
	// are in; before that the zero-filled slots win and no region is set.
	calibrationRank = 2
	// calibrationReset is written to the capture registers between cycles.
	// Zero would never match a counter that starts counting at one, so the
	// compare that arms the capture would never fire.
	calibrationReset = 2
)

// calibrator keeps the recent calibration captures.
type calibrator struct {
	buf    [calibrationPoints]uint32
	next   int
	period time.Duration
}

func (c *calibrator) reset(period time.Duration) {
	c.buf = [calibrationPoints]uint32{}
	c.next = 0
	c.period = period
}

// add stores v, overwriting the oldest capture, and returns the filtered
// calibration value.
func (c *calibrator) add(v uint32) uint32 {
	c.buf[c.next] = v
	c.next = (c.next + 1) % len(c.buf)
	return nthLargest(c.buf[:], calibrationRank)
}

// nthLargest returns the element at index k of buf sorted in descending
// order. buf is not modified.
func nthLargest(buf []uint32, k int) uint32 {
	for i, v := range buf {
		above, equal := 0, 0
		for j, w := range buf {
			switch {
			case w > v:
				above++
			case w == v && j < i:
				equal++
			}
		}
		if above+equal == k {
			return v
		}
	}
	return 0
}

// nextPeriod doubles the calibration period up to max.
func nextPeriod(p, max time.Duration) time.Duration {
	p *= 2
	if p > max {
		p = max
	}
	return p
}

// normalizeHF scales a high-frequency count to low-frequency units.
func (s *Sensor) normalizeHF(v uint32) uint32 {
	return uint32(uint64(v) * uint64(s.cfg.WindowTicksLF) / uint64(s.cfg.WindowTicksHF))
}

// consolidate prefers the low-frequency capture. The high-frequency capture
// is used only when the sensor spent the whole period touched.
func consolidate(lf, hf uint32) uint32 {
	if lf != calibrationReset {
		return lf
	}
	if hf > lf {
		return hf
	}
	return lf
}

func (s *Sensor) resetCaptureRegisters() {
	s.hw.Counter.SetCC(ccCalibrationLF, calibrationReset)
	s.hw.Counter.SetCC(ccCalibrationHF, calibrationReset)
}

// calibrationStart runs once the oscillator has settled after power-up.
func (s *Sensor) calibrationStart() {
	s.cal.reset(s.cfg.CalibrationPeriodInit)
	s.resetCaptureRegisters()
	s.calCapture.Schedule(s.cal.period)
}

// calibrationCapture consumes the hardware captures of the elapsed period.
func (s *Sensor) calibrationCapture() {
	lf := s.hw.Counter.CC(ccCalibrationLF)
	hf := s.normalizeHF(s.hw.Counter.CC(ccCalibrationHF))
	s.resetCaptureRegisters()

	point := consolidate(lf, hf)
	if point <= calibrationReset {
		log.Printf("captouch: no calibration capture (lf=%d hf=%d)", lf, hf)
		s.counters.skippedCalibrations.Add(1)
		s.calCapture.Schedule(s.cal.period)
		return
	}

	filtered := s.cal.add(point)
	s.setRegion(filtered)
	s.cal.period = nextPeriod(s.cal.period, s.cfg.CalibrationPeriodMax)
	s.calCapture.Schedule(s.cal.period)
	s.counters.calibrations.Add(1)

	if s.observer != nil {
		s.observer.OnCalibration(Calibration{Point: point, Filtered: filtered, Period: s.cal.period})
	}
}
