//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/apm-stick/internal/pins"
)

const consumer = "apm-stick"

// RealReader reads the controller from actual hardware using the Linux GPIO
// character device.
type RealReader struct {
	chip   *gpiocdev.Chip
	lines  *gpiocdev.Lines
	values []int
}

// NewRealReader requests one input line per control, in pins.Controls order.
// With activeLow, a line pulled to ground reads as pressed; arcade switches
// are wired that way against the internal pull-ups.
func NewRealReader(chipName string, offsets []int, activeLow bool) (*RealReader, error) {
	if len(offsets) != pins.NumControls {
		return nil, fmt.Errorf("need %d line offsets, got %d", pins.NumControls, len(offsets))
	}

	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	lines, err := chip.RequestLines(offsets, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request lines %v: %w", offsets, err)
	}

	return &RealReader{
		chip:   chip,
		lines:  lines,
		values: make([]int, len(offsets)),
	}, nil
}

// Read samples every line at once and packs them into a snapshot.
func (r *RealReader) Read() (pins.Snapshot, error) {
	if err := r.lines.Values(r.values); err != nil {
		return pins.Snapshot{}, fmt.Errorf("read lines: %w", err)
	}
	return pins.FromLines(r.values), nil
}

// Close releases GPIO resources.
// Lines are left as inputs with pull-up so the switches stay harmless while
// nothing owns them.
func (r *RealReader) Close() error {
	var errs []error

	if r.lines != nil {
		if err := r.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure lines: %w", err))
		}
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lines: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
