// Package timer provides the periodic trigger that drives rate ticks.
//
// It behaves like a masked hardware timer interrupt: Disable masks delivery
// and waits for an in-flight handler, a period that elapses while masked is
// latched, and the latched period runs once as soon as the mask is lifted.
package timer

import (
	"context"
	"sync"
	"time"
)

// Periodic calls a handler once per interval from its own goroutine.
type Periodic struct {
	interval time.Duration
	handler  func()

	mu      sync.Mutex // held while the handler runs
	masked  int
	pending bool
	fired   uint64
	latched uint64
}

// New creates a periodic trigger. It does nothing until Start.
func New(interval time.Duration, handler func()) *Periodic {
	return &Periodic{interval: interval, handler: handler}
}

// Start delivers a period every interval until ctx is done. Any period
// latched before Start is discarded. It always returns nil so it can run
// under an errgroup.
func (p *Periodic) Start(ctx context.Context) error {
	p.mu.Lock()
	p.pending = false
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Fire()
		}
	}
}

// Fire delivers one period now. While masked, the period is latched instead.
func (p *Periodic) Fire() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.masked > 0 {
		if !p.pending {
			p.latched++
		}
		p.pending = true
		return
	}
	p.run()
}

// Disable masks delivery. It returns once no handler is running.
// Calls nest; each Disable needs a matching Enable.
func (p *Periodic) Disable() {
	p.mu.Lock()
	p.masked++
	p.mu.Unlock()
}

// Enable lifts one level of masking. When the last level is lifted and a
// period was latched, the handler runs before Enable returns.
func (p *Periodic) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.masked == 0 {
		return
	}
	p.masked--
	if p.masked == 0 && p.pending {
		p.pending = false
		p.run()
	}
}

// Fired returns how many times the handler has run.
func (p *Periodic) Fired() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fired
}

// Latched returns how many periods were latched while masked. Several
// periods elapsing in one masked window latch once.
func (p *Periodic) Latched() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latched
}

// run must be called with mu held.
func (p *Periodic) run() {
	p.fired++
	if p.handler != nil {
		p.handler()
	}
}
