package gpio

import (
	"testing"
	"time"

	"github.com/sweeney/apm-stick/internal/pins"
)

func TestKeyStateHoldsPress(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k := newKeyState(80 * time.Millisecond)

	if !k.press('w', start) {
		t.Fatal("'w' should map to a control")
	}
	want := pins.Snapshot{}.With(pins.Up)
	if got := k.snapshot(start.Add(79 * time.Millisecond)); got != want {
		t.Errorf("during hold: got %#v, want %#v", got, want)
	}
	if got := k.snapshot(start.Add(80 * time.Millisecond)); got != (pins.Snapshot{}) {
		t.Errorf("after hold: got %#v, want released", got)
	}
}

func TestKeyStateRepeatExtendsHold(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k := newKeyState(80 * time.Millisecond)

	k.press('1', start)
	k.press('1', start.Add(50*time.Millisecond))
	if !k.snapshot(start.Add(100 * time.Millisecond)).Has(pins.B01) {
		t.Error("repeated key should extend the hold")
	}
}

func TestKeyStateMultipleControls(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k := newKeyState(0) // default hold

	k.press('a', now)
	k.press(0x1b, now)
	got := k.snapshot(now.Add(DefaultKeyHold / 2))
	want := pins.Snapshot{}.With(pins.Left).With(pins.B12)
	if got != want {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestKeyStateIgnoresUnmapped(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k := newKeyState(time.Second)

	if k.press('q', now) {
		t.Error("'q' should not map to a control")
	}
	if k.snapshot(now).Any() {
		t.Error("unmapped key pressed a control")
	}
}

func TestKeyStateForgetsExpiredHolds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k := newKeyState(10 * time.Millisecond)

	k.press('w', now)
	k.press('d', now.Add(5*time.Millisecond))
	if got := k.snapshot(now.Add(12 * time.Millisecond)); got != (pins.Snapshot{}).With(pins.Right) {
		t.Errorf("got %#v, want RIGHT only", got)
	}
	if len(k.until) != 1 {
		t.Errorf("held entries: got %d, want 1", len(k.until))
	}
}
