// Package gpio drives output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Line is a single digital output.
type Line interface {
	// Set drives the line to its logical on or off level. Active-low lines
	// are inverted by the implementation.
	Set(on bool) error

	// Close releases the line.
	Close() error
}

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"
