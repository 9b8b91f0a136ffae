//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealLED drives the activity LED through one output line.
type RealLED struct {
	line *gpiocdev.Line
}

// NewRealLED requests offset on chipName as an output, initially off.
func NewRealLED(chipName string, offset int) (*RealLED, error) {
	line, err := gpiocdev.RequestLine(chipName, offset,
		gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer+"-led"))
	if err != nil {
		return nil, fmt.Errorf("request led line %d: %w", offset, err)
	}
	return &RealLED{line: line}, nil
}

// Set switches the LED.
func (l *RealLED) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set led: %w", err)
	}
	return nil
}

// Close turns the LED off and releases the line.
func (l *RealLED) Close() error {
	l.line.SetValue(0)
	return l.line.Close()
}
