package logic

import (
	"math/bits"

	"github.com/sweeney/apm-stick/internal/pins"
)

// Detector counts newly pressed controls between consecutive snapshots.
// Not safe for concurrent use; it belongs to the poll loop.
type Detector struct {
	previous pins.Snapshot
}

// NewDetector creates a detector whose previous snapshot is all released.
func NewDetector() *Detector {
	return &Detector{}
}

// Rising returns the bits set in curr that were clear in prev.
func Rising(prev, curr pins.Snapshot) pins.Snapshot {
	var r pins.Snapshot
	for i := range curr {
		r[i] = (curr[i] ^ prev[i]) & curr[i]
	}
	return r
}

// Count returns the number of controls pressed in current but not in the
// previous snapshot, then remembers current for the next call.
// Releases and held controls never count.
func (d *Detector) Count(current pins.Snapshot) int {
	n := 0
	for _, b := range Rising(d.previous, current) {
		n += bits.OnesCount8(b)
	}
	d.previous = current
	return n
}

// Reset forgets the previous snapshot. Controls still held at the next call
// count as new actions.
func (d *Detector) Reset() {
	d.previous = pins.Snapshot{}
}

// Previous returns the last snapshot passed to Count.
func (d *Detector) Previous() pins.Snapshot {
	return d.previous
}
