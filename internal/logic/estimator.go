package logic

import (
	"fmt"
	"math"
)

// DefaultWeightPercent is the share of each new sample in the smoothed rate.
// Small values adapt slowly.
const DefaultWeightPercent = 2

// secondsPerMinute converts a one-second sample into a per-minute rate.
const secondsPerMinute = 60

// Estimator turns per-poll action counts into the value shown on the display.
type Estimator interface {
	// Record adds actions detected by one edge-detection pass.
	Record(actions int)
	// Value returns the value to display.
	Value() uint32
	// Reset zeroes the estimator.
	Reset()
	// Stats returns lifetime counters since the last reset.
	Stats() Stats
}

// Ticker is implemented by estimators that need a periodic tick.
type Ticker interface {
	Tick() TickResult
}

// Trigger is the periodic source feeding Tick. Disable must not return while
// a tick is being delivered, and periods that elapse while disabled must not
// run until Enable.
type Trigger interface {
	Disable()
	Enable()
}

// EstimatorConfig selects and parameterises the estimator.
type EstimatorConfig struct {
	Mode          Mode
	WeightPercent int // smoothed mode only, 0..100
}

// New creates the estimator selected by cfg. trigger is only used in
// smoothed mode and may be nil.
func New(cfg EstimatorConfig, trigger Trigger) (Estimator, error) {
	switch cfg.Mode {
	case ModeCumulative:
		return NewCumulative(), nil
	case ModeSmoothed:
		if cfg.WeightPercent < 0 || cfg.WeightPercent > 100 {
			return nil, fmt.Errorf("weight percent %d out of range 0..100", cfg.WeightPercent)
		}
		return NewSmoothed(uint8(cfg.WeightPercent), trigger), nil
	default:
		return nil, fmt.Errorf("unknown estimator mode %q", cfg.Mode)
	}
}

// EMA blends a one-second sample into the previous per-minute rate:
//
//	(W*60*sample + (100-W)*prev) / 100
//
// The arithmetic is unsigned 32-bit and truncating; the result saturates at
// math.MaxUint16. weight above 100 is treated as 100.
func EMA(weight uint8, sample, prev uint16) uint16 {
	w := uint32(weight)
	if w > 100 {
		w = 100
	}
	r := (w*secondsPerMinute*uint32(sample) + (100-w)*uint32(prev)) / 100
	if r > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(r)
}

// addSaturating16 adds n to v, stopping at math.MaxUint16.
func addSaturating16(v uint16, n int) uint16 {
	if n >= math.MaxUint16-int(v) {
		return math.MaxUint16
	}
	return v + uint16(n)
}
