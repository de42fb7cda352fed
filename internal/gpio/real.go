//go:build linux && !baremetal

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealLine drives a GPIO line through the Linux GPIO character device.
type RealLine struct {
	line *gpiocdev.Line
}

// NewRealLine requests offset on chip as an output, initially off.
func NewRealLine(chip string, offset int, activeLow bool) (*RealLine, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("captouch")}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request line %s:%d: %w", chip, offset, err)
	}

	return &RealLine{line: line}, nil
}

// Set drives the line. The character device applies active-low inversion.
func (r *RealLine) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set line: %w", err)
	}
	return nil
}

// Close switches the line off and releases it. The line is returned as an
// input so that an indicator is not left lit after exit.
func (r *RealLine) Close() error {
	var errs []error

	if err := r.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("clear line: %w", err))
	}
	if err := r.line.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
