// Package hid presents the stick to a host as a USB gamepad or keyboard
// through the Linux USB gadget HID function.
package hid

import (
	"fmt"
	"io"
	"os"

	"github.com/sweeney/apm-stick/internal/pins"
)

// DefaultGadget is the HID gadget device node.
const DefaultGadget = "/dev/hidg0"

// Profile selects what the host sees.
type Profile string

const (
	ProfileNone     Profile = "none"
	ProfileGamepad  Profile = "gamepad"
	ProfileKeyboard Profile = "keyboard"
)

// Device forwards controller snapshots to the host.
type Device interface {
	Send(s pins.Snapshot) error
	Close() error
}

// OpenGadget opens the gadget node and wraps it in the device for profile.
// ProfileNone returns a nil Device and no error.
func OpenGadget(profile Profile, path string) (Device, error) {
	if profile == ProfileNone || profile == "" {
		return nil, nil
	}
	if profile != ProfileGamepad && profile != ProfileKeyboard {
		return nil, fmt.Errorf("unknown hid profile %q", profile)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open hid gadget: %w", err)
	}
	if profile == ProfileKeyboard {
		return NewKeyboard(f), nil
	}
	return NewGamepad(f), nil
}

// reportWriter writes a report only when it differs from the previous one.
type reportWriter struct {
	w    io.Writer
	last []byte
}

func (r *reportWriter) write(report []byte) error {
	if r.last != nil && string(report) == string(r.last) {
		return nil
	}
	if _, err := r.w.Write(report); err != nil {
		return fmt.Errorf("write hid report: %w", err)
	}
	r.last = append(r.last[:0], report...)
	return nil
}

func (r *reportWriter) Close() error {
	if c, ok := r.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
