package captouch

import "errors"

var errZeroDenominator = errors.New("zero denominator")

// lowPass blends a sample into the previous filtered value. alpha is the
// weight of the previous value in 1/255 steps.
func lowPass(prev, sample uint16, alpha uint8) uint16 {
	a := uint32(alpha)
	return uint16((uint32(prev)*a + uint32(sample)*(255-a) + 128) >> 8)
}

// pressure maps a filtered high-frequency count to 0-127 with a hyperbolic
// curve: 127 at or below the saturation count, 0 at or above the activation
// count. gain shapes the curve relative to the calibration value.
func (s *Sensor) pressure(filtered uint16) (uint8, error) {
	lf, hf := int64(s.cfg.WindowTicksLF), int64(s.cfg.WindowTicksHF)
	r := s.region

	a := (int64(r.Nominal) * hf * int64(s.cfg.TransformGain) / lf) >> 8
	sp := int64(r.Activate) * hf / lf
	sn := int64(r.Saturate) * hf / lf

	x := int64(filtered)
	if x < sn {
		x = sn
	}
	if x > sp {
		x = sp
	}

	den := (sp - sn) * (x + a - sn)
	if den == 0 {
		return 0, errZeroDenominator
	}
	return uint8(127 * a * (sp - x) / den), nil
}
