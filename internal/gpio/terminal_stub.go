//go:build !linux

package gpio

import (
	"errors"
	"time"

	"github.com/sweeney/apm-stick/internal/pins"
)

// TerminalReader is not available on non-Linux platforms.
type TerminalReader struct{}

// NewTerminalReader returns an error on non-Linux platforms.
func NewTerminalReader(path string, hold time.Duration) (*TerminalReader, error) {
	return nil, errors.New("gpio: terminal input not supported on this platform")
}

// Read is not implemented on non-Linux platforms.
func (r *TerminalReader) Read() (pins.Snapshot, error) {
	return pins.Snapshot{}, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *TerminalReader) Close() error {
	return nil
}
