// Package display drives the 3-digit seven-segment APM readout.
package display

// Digits is the number of digits on the readout.
const Digits = 3

// MaxValue is the largest value the readout can show.
const MaxValue = 999

// Sink shows a value to the player.
type Sink interface {
	// Show displays value. Callers pass values already bounded by Clamp.
	Show(value uint32) error
	// Close releases the output.
	Close() error
}

// Clamp bounds value to what the readout can show. Anything above MaxValue
// shows as MaxValue rather than wrapping to its low digits.
func Clamp(value uint32) uint32 {
	if value > MaxValue {
		return MaxValue
	}
	return value
}

// Segment patterns for 0-9, bit 0 = H (decimal point) through bit 7 = A.
var segments = [10]byte{
	0x7E, // 0
	0x18, // 1
	0x6D, // 2
	0x3D, // 3
	0x1B, // 4
	0x37, // 5
	0x77, // 6
	0x1C, // 7
	0x7F, // 8
	0x3F, // 9
}

// Frame is one digit pattern per shift register, least significant digit
// first, in the order the patterns are shifted out.
type Frame [Digits]byte

// Blank turns every segment off.
var Blank = Frame{}

// Encode converts value to segment patterns. Leading zeros are shown, so 7
// reads "007". Digits above the readout's width are dropped; use Clamp first.
func Encode(value uint32) Frame {
	var f Frame
	for i := 0; i < Digits; i++ {
		f[i] = segments[value%10]
		value /= 10
	}
	return f
}
