// Package logic contains the pure input and rate logic for the APM counter.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Mode selects the rate estimator strategy.
type Mode string

const (
	// ModeCumulative counts every action since the last reset.
	ModeCumulative Mode = "cumulative"
	// ModeSmoothed keeps an exponentially smoothed actions-per-minute rate
	// updated by a periodic tick.
	ModeSmoothed Mode = "smoothed"
)

// Stats are lifetime counters since the last reset.
type Stats struct {
	Actions uint64 // actions recorded
	Ticks   uint64 // rate ticks processed (always 0 in cumulative mode)
}

// TickResult describes one rate tick.
type TickResult struct {
	Actions uint16 // pending actions consumed by this tick
	Rate    uint16 // smoothed rate after the tick
}

// Reading is a point-in-time estimator value to be published.
type Reading struct {
	Timestamp time.Time
	Mode      Mode
	Value     uint32 // raw estimator value
	Displayed uint32 // value after the display policy was applied
	Stats     Stats
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}
