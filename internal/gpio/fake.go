package gpio

import (
	"errors"

	"github.com/sweeney/apm-stick/internal/pins"
)

// FakeReader is a test double that returns scripted snapshots.
type FakeReader struct {
	// Samples contains scripted snapshots to return.
	// Each call to Read() consumes the next sample.
	Samples []pins.Snapshot

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []pins.Snapshot) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (pins.Snapshot, error) {
	if f.ReadError != nil {
		return pins.Snapshot{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return pins.Snapshot{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeLED records every state written to it.
type FakeLED struct {
	// States holds each value passed to Set, in order.
	States []bool

	// SetError, if set, is returned by Set and the state is not recorded.
	SetError error

	Closed bool
}

// Set records on unless SetError is set.
func (f *FakeLED) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.States = append(f.States, on)
	return nil
}

// Close marks the LED as closed.
func (f *FakeLED) Close() error {
	f.Closed = true
	return nil
}
