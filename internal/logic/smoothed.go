package logic

import "sync"

// Smoothed keeps an exponentially smoothed actions-per-minute rate.
//
// Record and Value are called from the poll loop; Tick is called from the
// periodic trigger's goroutine. pending and rate are shared between the two
// and are only touched with mu held.
type Smoothed struct {
	weight  uint8
	trigger Trigger

	mu      sync.Mutex
	pending uint16
	rate    uint16
	stats   Stats
}

// NewSmoothed creates a smoothed estimator. weight is the percentage of each
// new sample in the rate. trigger may be nil.
func NewSmoothed(weight uint8, trigger Trigger) *Smoothed {
	if weight > 100 {
		weight = 100
	}
	return &Smoothed{weight: weight, trigger: trigger}
}

// Record adds actions to the count pending for the next tick. The pending
// count saturates at math.MaxUint16.
func (s *Smoothed) Record(actions int) {
	if actions <= 0 {
		return
	}
	s.mu.Lock()
	s.pending = addSaturating16(s.pending, actions)
	s.stats.Actions += uint64(actions)
	s.mu.Unlock()
}

// Tick folds the pending count into the rate and clears it.
func (s *Smoothed) Tick() TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	consumed := s.pending
	s.rate = EMA(s.weight, consumed, s.rate)
	s.pending = 0
	s.stats.Ticks++
	return TickResult{Actions: consumed, Rate: s.rate}
}

// Value returns the smoothed rate in actions per minute.
func (s *Smoothed) Value() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(s.rate)
}

// Pending returns the actions recorded since the last tick.
func (s *Smoothed) Pending() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Reset masks the trigger, zeroes the rate and pending count, then unmasks.
// A period that elapsed while masked is delivered by the trigger after the
// state is already zero.
func (s *Smoothed) Reset() {
	if s.trigger != nil {
		s.trigger.Disable()
		defer s.trigger.Enable()
	}
	s.mu.Lock()
	s.pending = 0
	s.rate = 0
	s.stats = Stats{}
	s.mu.Unlock()
}

// Stats returns lifetime counters since the last reset.
func (s *Smoothed) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
