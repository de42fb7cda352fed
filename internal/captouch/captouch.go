// Package captouch implements capacitive touch sensing with a current-driven
// comparator oscillator.
//
// The electrode capacitance is measured indirectly: the comparator's current
// source charges the electrode and each threshold crossing is counted by a
// hardware counter during a fixed timebase window. More capacitance slows the
// oscillation, so a lower period count means a stronger touch.
//
// The sensor runs in two modes. In autonomous low-frequency mode the
// interconnect compares every short window against the activation threshold
// and only interrupts the CPU when the count stays below it. In
// high-frequency mode every long window raises an interrupt and the count is
// filtered and mapped to a 0-127 pressure value.
//
// The activation threshold floats: the highest count seen in each mode is
// captured by hardware, rank filtered, and converted into a CounterRegion on
// an exponentially backed-off schedule.
package captouch

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/captouch/internal/hw"
)

// State is the operating state of the sensor.
type State int32

const (
	StateUninitialized State = iota
	StateNotSupported
	StateOff
	StateAutonomousLowFrequency
	StateHighFrequency
)

var stateNames = [...]string{
	StateUninitialized:          "UNINITIALIZED",
	StateNotSupported:           "NOT_SUPPORTED",
	StateOff:                    "OFF",
	StateAutonomousLowFrequency: "LOW_FREQUENCY",
	StateHighFrequency:          "HIGH_FREQUENCY",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

var (
	// ErrNotSupported is returned by Init when the board has no touch pin.
	ErrNotSupported = errors.New("captouch: board has no touch pin")
	// ErrInvalidTransition is returned for a state change outside the
	// transition table.
	ErrInvalidTransition = errors.New("captouch: invalid state transition")
	// ErrAlreadyInState is returned when the requested state is current.
	ErrAlreadyInState = errors.New("captouch: already in state")
	// ErrNotInitialized is returned by Start and Stop before Init.
	ErrNotInitialized = errors.New("captouch: not initialized")
	// ErrNotConnected is returned by sinks with no connected client.
	ErrNotConnected = errors.New("captouch: sink not connected")
	// ErrInvalidState is returned by sinks whose client has not subscribed.
	ErrInvalidState = errors.New("captouch: sink not subscribed")
)

// Board resolves the comparator input wired to the touch electrode.
type Board interface {
	ComparatorPin() (uint32, bool)
}

// Sink accepts binary telemetry records. Rejections are not retried.
type Sink interface {
	Notify(b []byte) error
}

// Indicator is a fire-and-forget status light.
type Indicator interface {
	Flash()
}

// Calibration is the outcome of one calibration cycle.
type Calibration struct {
	Point    uint32        // consolidated capture, low-frequency units
	Filtered uint32        // rank-filtered calibration value
	Period   time.Duration // delay until the next capture
}

// Observer is notified from the work queue about sensor activity.
type Observer interface {
	OnState(State)
	OnRegion(Region)
	OnCalibration(Calibration)
	OnRecord(Record)
}

// Collaborators are the optional outputs of a Sensor. Board is required.
type Collaborators struct {
	Board     Board
	Sink      Sink
	Indicator Indicator
	Observer  Observer
}

// Config holds the sensing parameters.
type Config struct {
	Comparator hw.ComparatorConfig

	// Window lengths in timebase ticks. The low-frequency window is short and
	// coarse; the high-frequency window is long for resolution.
	WindowTicksLF uint32
	WindowTicksHF uint32
	// Timebase period in ticks between two windows.
	ResetTicksLF uint32
	ResetTicksHF uint32

	// Fixed-point (x/255) fractions of the calibration value.
	ActivateMargin uint8
	SaturateMargin uint8
	// Low-pass weight of the previous filtered value, x/255.
	FilterAlpha uint8
	// Curvature of the pressure mapping, x/255 of the calibration value.
	TransformGain uint8

	CalibrationSettle     time.Duration
	CalibrationPeriodInit time.Duration
	CalibrationPeriodMax  time.Duration

	// Consecutive zero-pressure samples in high-frequency mode before the
	// sensor drops back to low-frequency mode. Zero disables release.
	ReleaseSamples int
	// Depth of the interrupt-to-work sample queue.
	QueueDepth int
}

// Fixed8 converts a percentage to an 8-bit fixed-point fraction.
func Fixed8(percent uint32) uint8 {
	return uint8(percent * 255 / 100)
}

// DefaultConfig returns the parameters tuned for a 2.5uA current source.
func DefaultConfig() Config {
	return Config{
		Comparator: hw.ComparatorConfig{
			ThresholdLow:  5,
			ThresholdHigh: 30,
			CurrentSource: 1, // 2.5uA
		},
		WindowTicksLF:         4,
		WindowTicksHF:         500,
		ResetTicksLF:          4000,
		ResetTicksHF:          4000,
		ActivateMargin:        Fixed8(80),
		SaturateMargin:        Fixed8(40),
		FilterAlpha:           Fixed8(40),
		TransformGain:         Fixed8(50),
		CalibrationSettle:     10 * time.Millisecond,
		CalibrationPeriodInit: time.Second,
		CalibrationPeriodMax:  2 * time.Minute,
		ReleaseSamples:        8,
		QueueDepth:            4,
	}
}

const comparatorThresholdMax = 63

// Validate checks that the parameters describe a working pipeline.
func (c Config) Validate() error {
	th := c.Comparator
	if th.ThresholdHigh > comparatorThresholdMax || th.ThresholdLow >= th.ThresholdHigh {
		return fmt.Errorf("comparator thresholds %d/%d out of range", th.ThresholdLow, th.ThresholdHigh)
	}
	if c.WindowTicksLF == 0 || c.WindowTicksHF < c.WindowTicksLF {
		return fmt.Errorf("window ticks %d/%d invalid", c.WindowTicksLF, c.WindowTicksHF)
	}
	if c.ResetTicksLF <= c.WindowTicksLF+sampleStartTick || c.ResetTicksHF <= c.WindowTicksHF+sampleStartTick {
		return fmt.Errorf("reset ticks %d/%d shorter than window", c.ResetTicksLF, c.ResetTicksHF)
	}
	if c.SaturateMargin >= c.ActivateMargin {
		return fmt.Errorf("saturate margin %d not below activate margin %d", c.SaturateMargin, c.ActivateMargin)
	}
	if c.CalibrationPeriodInit <= 0 || c.CalibrationPeriodMax < c.CalibrationPeriodInit {
		return fmt.Errorf("calibration period %v/%v invalid", c.CalibrationPeriodInit, c.CalibrationPeriodMax)
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("queue depth %d invalid", c.QueueDepth)
	}
	return nil
}
