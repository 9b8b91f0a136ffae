package gpio

import (
	"time"

	"github.com/sweeney/apm-stick/internal/pins"
)

// DefaultKeyHold is how long one key press keeps its control pressed.
// Terminals report key presses but not releases, so every press is
// stretched into a short hold.
const DefaultKeyHold = 80 * time.Millisecond

// keyState turns a stream of key presses into controller snapshots.
type keyState struct {
	hold  time.Duration
	until map[pins.Control]time.Time
}

func newKeyState(hold time.Duration) *keyState {
	if hold <= 0 {
		hold = DefaultKeyHold
	}
	return &keyState{hold: hold, until: make(map[pins.Control]time.Time)}
}

// press holds the control mapped to key r. Unmapped keys are ignored.
func (k *keyState) press(r rune, now time.Time) bool {
	c, ok := pins.ByKey(r)
	if !ok {
		return false
	}
	k.until[c] = now.Add(k.hold)
	return true
}

// snapshot returns the controls still held at now. Expired holds are
// forgotten.
func (k *keyState) snapshot(now time.Time) pins.Snapshot {
	var s pins.Snapshot
	for c, until := range k.until {
		if now.Before(until) {
			s = s.With(c)
		} else {
			delete(k.until, c)
		}
	}
	return s
}
