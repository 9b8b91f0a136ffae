package hid

import (
	"io"

	"github.com/sweeney/apm-stick/internal/pins"
)

// KeySlots is how many keys a boot keyboard report can hold down at once.
const KeySlots = 6

// Controls in the order they claim key slots.
var keyboardOrder = []pins.Control{
	pins.Left, pins.Right, pins.Up, pins.Down,
	pins.B01, pins.B02, pins.B03, pins.B04,
	pins.B05, pins.B06, pins.B07, pins.B08,
	pins.B09, pins.B10, pins.B11, pins.B12,
}

// Keyboard maps controls to keys. A newly pressed control takes the first
// free slot; with all slots taken it is ignored until released and pressed
// again.
type Keyboard struct {
	reportWriter
	slots    [KeySlots]*pins.Control
	previous pins.Snapshot
}

// NewKeyboard writes boot keyboard reports to w. If w is an io.Closer, Close
// closes it.
func NewKeyboard(w io.Writer) *Keyboard {
	return &Keyboard{reportWriter: reportWriter{w: w}}
}

// Update applies s to the key slots and returns the resulting report:
// modifier byte, reserved byte, then one usage ID per slot.
func (k *Keyboard) Update(s pins.Snapshot) [8]byte {
	for i := range keyboardOrder {
		c := &keyboardOrder[i]
		switch {
		case s.Has(*c) && !k.previous.Has(*c):
			k.claim(c)
		case !s.Has(*c):
			k.release(c)
		}
	}
	k.previous = s
	return k.Report()
}

// Report returns the report for the current slots.
func (k *Keyboard) Report() [8]byte {
	var r [8]byte
	for i, c := range k.slots {
		if c != nil {
			r[2+i] = c.Usage
		}
	}
	return r
}

func (k *Keyboard) claim(c *pins.Control) {
	for i := range k.slots {
		if k.slots[i] == nil {
			k.slots[i] = c
			return
		}
	}
}

func (k *Keyboard) release(c *pins.Control) {
	for i := range k.slots {
		if k.slots[i] == c {
			k.slots[i] = nil
		}
	}
}

// Send updates the slots from s and writes the report if it changed.
func (k *Keyboard) Send(s pins.Snapshot) error {
	r := k.Update(s)
	return k.write(r[:])
}
