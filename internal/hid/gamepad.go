package hid

import (
	"io"

	"github.com/sweeney/apm-stick/internal/pins"
)

// Axis positions.
const (
	AxisMin    = 0
	AxisCenter = 128
	AxisMax    = 255
)

// Button bits in the two gamepad button bytes.
var gamepadButtons = []struct {
	control pins.Control
	index   int // 0 = report byte 2, 1 = report byte 3
	bit     byte
}{
	{pins.B01, 0, 1 << 0},
	{pins.B02, 0, 1 << 1},
	{pins.B03, 0, 1 << 2},
	{pins.B04, 0, 1 << 3},
	{pins.B05, 0, 1 << 4},
	{pins.B06, 0, 1 << 5},
	{pins.B07, 0, 1 << 6},
	{pins.B08, 0, 1 << 7},
	{pins.B09, 1, 1 << 0},
	{pins.B10, 1, 1 << 1},
	{pins.B11, 1, 1 << 2},
	{pins.B12, 1, 1 << 3},
}

// GamepadReport builds the 4-byte gamepad report: X axis, Y axis and two
// button bytes. Left wins over right and up wins over down.
func GamepadReport(s pins.Snapshot) [4]byte {
	x, y := byte(AxisCenter), byte(AxisCenter)
	switch {
	case s.Has(pins.Left):
		x = AxisMin
	case s.Has(pins.Right):
		x = AxisMax
	}
	switch {
	case s.Has(pins.Up):
		y = AxisMin
	case s.Has(pins.Down):
		y = AxisMax
	}

	r := [4]byte{x, y, 0, 0}
	for _, b := range gamepadButtons {
		if s.Has(b.control) {
			r[2+b.index] |= b.bit
		}
	}
	return r
}

// Gamepad sends gamepad reports.
type Gamepad struct {
	reportWriter
}

// NewGamepad writes gamepad reports to w. If w is an io.Closer, Close closes it.
func NewGamepad(w io.Writer) *Gamepad {
	return &Gamepad{reportWriter{w: w}}
}

// Send writes the report for s if it changed.
func (g *Gamepad) Send(s pins.Snapshot) error {
	r := GamepadReport(s)
	return g.write(r[:])
}
