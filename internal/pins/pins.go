// Package pins describes the controller state snapshot: how many bytes it
// has and which bit belongs to which physical control.
package pins

// NumStateBytes is the number of bytes in a controller state snapshot.
const NumStateBytes = 2

// NumControls is the number of physical controls (one per bit).
const NumControls = NumStateBytes * 8

// Snapshot is one capture of every control. A set bit means pressed.
type Snapshot [NumStateBytes]byte

// Any reports whether any control is pressed.
func (s Snapshot) Any() bool {
	for _, b := range s {
		if b != 0 {
			return true
		}
	}
	return false
}

// Has reports whether control c is pressed in s.
func (s Snapshot) Has(c Control) bool {
	return s[c.Byte]&c.Mask != 0
}

// With returns s with control c pressed.
func (s Snapshot) With(c Control) Snapshot {
	s[c.Byte] |= c.Mask
	return s
}

// Pressed returns the names of the pressed controls in table order.
func (s Snapshot) Pressed() []string {
	var names []string
	for _, c := range Controls {
		if s.Has(c) {
			names = append(names, c.Name)
		}
	}
	return names
}

// Control is one physical button or joystick direction.
type Control struct {
	Name  string
	Byte  int  // index into Snapshot
	Mask  byte // bit within that byte
	Usage byte // HID keyboard usage ID for the keyboard profile
	Key   rune // terminal key that simulates it
}

// First state byte.
var (
	B05 = Control{Name: "B05", Byte: 0, Mask: 1 << 7, Usage: 0x22, Key: '5'}
	B06 = Control{Name: "B06", Byte: 0, Mask: 1 << 6, Usage: 0x23, Key: '6'}
	B07 = Control{Name: "B07", Byte: 0, Mask: 1 << 5, Usage: 0x24, Key: '7'}
	B08 = Control{Name: "B08", Byte: 0, Mask: 1 << 4, Usage: 0x25, Key: '8'}
	B09 = Control{Name: "B09", Byte: 0, Mask: 1 << 3, Usage: 0x26, Key: '9'}
	B10 = Control{Name: "B10", Byte: 0, Mask: 1 << 2, Usage: 0x27, Key: '0'}
	B11 = Control{Name: "B11", Byte: 0, Mask: 1 << 1, Usage: 0x06, Key: 'c'}
	B12 = Control{Name: "B12", Byte: 0, Mask: 1 << 0, Usage: 0x29, Key: 0x1b}
)

// Second state byte.
var (
	Left  = Control{Name: "LEFT", Byte: 1, Mask: 1 << 7, Usage: 0x04, Key: 'a'}
	Right = Control{Name: "RIGHT", Byte: 1, Mask: 1 << 6, Usage: 0x07, Key: 'd'}
	Up    = Control{Name: "UP", Byte: 1, Mask: 1 << 5, Usage: 0x1a, Key: 'w'}
	Down  = Control{Name: "DOWN", Byte: 1, Mask: 1 << 4, Usage: 0x16, Key: 's'}
	B01   = Control{Name: "B01", Byte: 1, Mask: 1 << 3, Usage: 0x1e, Key: '1'}
	B02   = Control{Name: "B02", Byte: 1, Mask: 1 << 2, Usage: 0x1f, Key: '2'}
	B03   = Control{Name: "B03", Byte: 1, Mask: 1 << 1, Usage: 0x20, Key: '3'}
	B04   = Control{Name: "B04", Byte: 1, Mask: 1 << 0, Usage: 0x21, Key: '4'}
)

// Controls lists every control in wiring order: byte 0 bit 7 first, byte 1
// bit 0 last. Config pin lists use the same order.
var Controls = [NumControls]Control{
	B05, B06, B07, B08, B09, B10, B11, B12,
	Left, Right, Up, Down, B01, B02, B03, B04,
}

// ByKey returns the control simulated by terminal key r.
func ByKey(r rune) (Control, bool) {
	for _, c := range Controls {
		if c.Key == r {
			return c, true
		}
	}
	return Control{}, false
}

// FromLines builds a snapshot from per-control line values in Controls order.
// Non-zero means pressed. Extra values are ignored.
func FromLines(values []int) Snapshot {
	var s Snapshot
	for i, c := range Controls {
		if i >= len(values) {
			break
		}
		if values[i] != 0 {
			s[c.Byte] |= c.Mask
		}
	}
	return s
}
