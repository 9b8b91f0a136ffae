package hid

import "github.com/sweeney/apm-stick/internal/pins"

// FakeDevice records sent snapshots for test assertions.
type FakeDevice struct {
	Sent      []pins.Snapshot
	SendError error
	Closed    bool
}

// Send records s.
func (f *FakeDevice) Send(s pins.Snapshot) error {
	if f.SendError != nil {
		return f.SendError
	}
	f.Sent = append(f.Sent, s)
	return nil
}

// Close marks the device as closed.
func (f *FakeDevice) Close() error {
	f.Closed = true
	return nil
}
