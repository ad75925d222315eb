// Package live runs a periodic task with at most one run in flight.
//
// A Poller fires on a fixed interval. If the previous run has not finished
// when the timer fires, the tick is skipped rather than queued, so results
// can never arrive out of order. Errors from a run are logged and counted;
// they never stop the loop.
//
// Stopping a Poller cancels the timer only. A run that is already in flight
// completes normally and its side effects may land after Stop returns.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the default period between ticks.
const DefaultInterval = 500 * time.Millisecond

// ErrSkip may be returned by a TickFunc to mark a tick as a no-op
// (for example, no frame ready yet). It is not counted as a failure.
var ErrSkip = errors.New("live: tick skipped")

// TickFunc is one unit of periodic work.
type TickFunc func(ctx context.Context) error

// Stats are cumulative counters since the Poller was created.
type Stats struct {
	Started  uint64 `json:"started"`
	Skipped  uint64 `json:"skipped"`
	Idle     uint64 `json:"idle"`
	Failed   uint64 `json:"failed"`
	Running  bool   `json:"running"`
	InFlight bool   `json:"in_flight"`
}

// Poller is a cancellable periodic task with a single-flight guard.
type Poller struct {
	interval time.Duration
	tick     TickFunc
	logger   *slog.Logger

	// inFlight is set for the duration of a tick.
	inFlight atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	started atomic.Uint64
	skipped atomic.Uint64
	idle    atomic.Uint64
	failed  atomic.Uint64
	wg      sync.WaitGroup
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger used for swallowed tick errors.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// New creates a stopped Poller. A non-positive interval uses DefaultInterval.
func New(interval time.Duration, tick TickFunc, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		interval: interval,
		tick:     tick,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "live.poller")
	return p
}

// Interval returns the configured period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins ticking. The first tick fires immediately.
// It returns false if the poller was already running.
func (p *Poller) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)
	return true
}

// Stop cancels the timer. It returns false if the poller was not running.
// An in-flight tick is not interrupted.
func (p *Poller) Stop() bool {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// Running reports whether the timer is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// InFlight reports whether a tick is currently executing.
func (p *Poller) InFlight() bool {
	return p.inFlight.Load()
}

// Wait blocks until every tick started so far has returned.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Stats returns a snapshot of the counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Started:  p.started.Load(),
		Skipped:  p.skipped.Load(),
		Idle:     p.idle.Load(),
		Failed:   p.failed.Load(),
		Running:  p.Running(),
		InFlight: p.InFlight(),
	}
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fire()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fire()
		}
	}
}

// fire starts one tick unless another is outstanding. It reports whether a
// tick was started.
func (p *Poller) fire() bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		return false
	}
	p.started.Add(1)
	p.wg.Add(1)

	// Ticks run detached from the loop context; Stop never aborts them.
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)

		err := p.tick(context.Background())
		switch {
		case err == nil:
		case errors.Is(err, ErrSkip):
			p.idle.Add(1)
		default:
			p.failed.Add(1)
			p.logger.Warn("live tick failed", "error", err)
		}
	}()
	return true
}
