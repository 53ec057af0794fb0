package pacer

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/statsync/statsync/internal/clock"
)

const (
	jitterProbability = 0.20
	jitterMinSeconds  = 0.5
	jitterMaxSeconds  = 3.0
)

// Pacer is stateful; a single SyncManager drives it from one goroutine
// (spec.md §4.4). Its methods hold an internal mutex, so concurrent calls
// are serialized rather than interleaved.
type Pacer struct {
	policy Policy
	clock  clock.Clock
	rng    *rand.Rand
	logger *slog.Logger

	mu             sync.Mutex
	batchCount     int
	lastBatchStart time.Time
	started        bool
}

// New constructs a Pacer gated by policy, driven by clk for all timing and
// rng for jitter so tests can seed determinism.
func New(policy Policy, clk clock.Clock, rng *rand.Rand, logger *slog.Logger) *Pacer {
	return &Pacer{policy: policy, clock: clk, rng: rng, logger: logger}
}

// WaitForNextBatch implements the six-step contract from spec.md §4.4.
// Returns the interval actually applied (excluding any long pause).
func (p *Pacer) WaitForNextBatch() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()

	var elapsed time.Duration
	if p.started {
		elapsed = now.Sub(p.lastBatchStart)
	} else {
		p.started = true
		elapsed = time.Duration(1<<63 - 1) // effectively infinite: first batch never waits
	}
	interval := p.policy.BaseInterval

	// batch-count-based scaling and cooldown pauses are an adaptive-only
	// behavior (original_source/utils/batch_process_controller.py:47); with
	// adaptive disabled, every batch waits exactly BaseInterval.
	if p.policy.Adaptive {
		interval = time.Duration(float64(p.policy.BaseInterval) * p.policy.multiplierForBatchCount(p.batchCount))

		if pause, ok := p.policy.longPauseFor(p.batchCount); ok {
			if p.logger != nil {
				p.logger.Warn("pacer long pause triggered",
					"batch_count", p.batchCount, "pause", pause.Pause, "reason", pause.Reason)
			}

			p.clock.Sleep(pause.Pause)
		}
	}

	if elapsed < interval {
		p.clock.Sleep(interval - elapsed)
	}

	if p.rng != nil && p.rng.Float64() < jitterProbability {
		jitter := jitterMinSeconds + p.rng.Float64()*(jitterMaxSeconds-jitterMinSeconds)
		p.clock.Sleep(time.Duration(jitter * float64(time.Second)))
	}

	p.batchCount++
	p.lastBatchStart = p.clock.Now()

	return interval
}

// BatchCount reports the current batch counter, for tests and reporting.
func (p *Pacer) BatchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.batchCount
}
