// Package status provides a thread-safe status tracker for the apm-stick daemon.
// It is read by HTTP handlers, the WebSocket stream and heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/apm-stick/internal/logic"
	"github.com/sweeney/apm-stick/internal/pins"
)

// Config contains daemon configuration for display.
type Config struct {
	Mode            logic.Mode
	WeightPercent   int
	TickMs          int64
	PollMs          int64
	DebounceSamples int
	HeartbeatMs     int64
	PublishMs       int64
	Input           string
	Display         string
	HID             string
	Broker          string
	HTTPAddr        string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Value         uint32 // raw estimator value
	Displayed     uint32
	Pressed       pins.Snapshot
	Stats         logic.Stats
	Resets        int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the latest estimator output and controller state.
// Called from runLoop on every poll.
func (t *Tracker) Update(value, displayed uint32, pressed pins.Snapshot, stats logic.Stats) {
	t.mu.Lock()
	t.snap.Value = value
	t.snap.Displayed = displayed
	t.snap.Pressed = pressed
	t.snap.Stats = stats
	t.mu.Unlock()
}

// RecordReset counts a reset and zeroes the estimator fields.
func (t *Tracker) RecordReset() {
	t.mu.Lock()
	t.snap.Resets++
	t.snap.Value = 0
	t.snap.Displayed = 0
	t.snap.Stats = logic.Stats{}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
