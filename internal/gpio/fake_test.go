package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/apm-stick/internal/pins"
)

func TestFakeReaderRead(t *testing.T) {
	samples := []pins.Snapshot{
		{0x80, 0x00},
		{0x00, 0x08},
		{0x80, 0x08},
	}

	f := NewFakeReader(samples)

	for i, want := range samples {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("sample %d: got %#v, want %#v", i, got, want)
		}
	}

	// Exhausted samples repeat the last one
	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != samples[2] {
		t.Errorf("repeat: got %#v, want %#v", got, samples[2])
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)

	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]pins.Snapshot{{0xFF, 0xFF}})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader([]pins.Snapshot{{}})

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeReaderReset(t *testing.T) {
	samples := []pins.Snapshot{{0x01, 0x00}, {0x00, 0x01}}
	f := NewFakeReader(samples)

	f.Read()
	f.Reset()

	got, _ := f.Read()
	if got != samples[0] {
		t.Errorf("after reset: got %#v, want %#v", got, samples[0])
	}
}

func TestFakeReaderSatisfiesReader(t *testing.T) {
	var _ Reader = NewFakeReader(nil)
}

func TestFakeLED(t *testing.T) {
	var led FakeLED
	led.Set(true)
	led.Set(false)
	if len(led.States) != 2 || !led.States[0] || led.States[1] {
		t.Errorf("states: got %v, want [true false]", led.States)
	}

	led.SetError = errors.New("line gone")
	if err := led.Set(true); err == nil {
		t.Error("expected error")
	}
	if len(led.States) != 2 {
		t.Errorf("failed Set was recorded: %v", led.States)
	}
}
