package display

import (
	"fmt"
	"io"
)

// latch is the parallel-load line of the shift registers.
type latch interface {
	SetValue(value int) error
}

// shiftRegister writes frames to a chain of serial-in parallel-out registers
// and pulses the latch so all digits change together.
type shiftRegister struct {
	w     io.Writer
	latch latch

	last  Frame
	shown bool
}

func (s *shiftRegister) write(f Frame) error {
	if s.shown && f == s.last {
		return nil
	}
	if _, err := s.w.Write(f[:]); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if s.latch != nil {
		if err := s.latch.SetValue(1); err != nil {
			return fmt.Errorf("latch high: %w", err)
		}
		if err := s.latch.SetValue(0); err != nil {
			return fmt.Errorf("latch low: %w", err)
		}
	}
	s.last = f
	s.shown = true
	return nil
}

// Show encodes value and writes it if it differs from the last frame.
func (s *shiftRegister) Show(value uint32) error {
	return s.write(Encode(value))
}
