package logic

import "github.com/sweeney/apm-stick/internal/pins"

// Debouncer filters contact bounce from raw snapshots. A control's filtered
// state only follows the raw state after they have disagreed for `samples`
// consecutive polls.
type Debouncer struct {
	samples int
	stable  pins.Snapshot
	counts  [pins.NumControls]int
}

// NewDebouncer creates a debouncer. samples <= 1 passes raw input through.
func NewDebouncer(samples int) *Debouncer {
	return &Debouncer{samples: samples}
}

// Process takes a raw snapshot and returns the filtered one.
func (d *Debouncer) Process(raw pins.Snapshot) pins.Snapshot {
	if d.samples <= 1 {
		d.stable = raw
		return raw
	}

	for i, c := range pins.Controls {
		if raw.Has(c) == d.stable.Has(c) {
			d.counts[i] = 0
			continue
		}
		d.counts[i]++
		if d.counts[i] >= d.samples {
			d.stable[c.Byte] ^= c.Mask
			d.counts[i] = 0
		}
	}
	return d.stable
}

// Reset clears filtered state and pending counts.
func (d *Debouncer) Reset() {
	d.stable = pins.Snapshot{}
	d.counts = [pins.NumControls]int{}
}
