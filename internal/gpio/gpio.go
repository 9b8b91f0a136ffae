// Package gpio provides controller input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The terminal implementation simulates the controller from a keyboard.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/apm-stick/internal/pins"

// Reader reads the state of every controller input.
type Reader interface {
	// Read returns the current snapshot. A set bit means pressed.
	Read() (pins.Snapshot, error)

	// Close releases input resources.
	Close() error
}

// LED is the activity indicator lit while any control is pressed.
type LED interface {
	Set(on bool) error
	Close() error
}

// DefaultChip is the GPIO chip the controller is wired to.
const DefaultChip = "gpiochip0"

// DefaultLines are the BCM line offsets for each control, in pins.Controls
// order. SPI0 (7-11) and GPIO18 are left free for the display.
var DefaultLines = []int{
	5, 6, 13, 19, 26, 21, 20, 16, // B05..B12
	17, 27, 22, 23, 24, 25, 12, 4, // LEFT RIGHT UP DOWN B01..B04
}
