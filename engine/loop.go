package engine

import (
	"context"
	"math"
	"sync"
	"time"
)

// JitterStats accumulates wake-up lateness of a periodic loop using
// Welford's online algorithm. Observation happens on the loop
// goroutine; Snapshot may be called from anywhere.
type JitterStats struct {
	mu       sync.Mutex
	count    int
	mean     float64 // ns
	m2       float64
	max      float64
	overruns int
}

// JitterReport is a point-in-time summary of loop timing.
type JitterReport struct {
	Cycles   int
	Mean     time.Duration
	StdDev   time.Duration
	Max      time.Duration
	Overruns int
}

func (j *JitterStats) observe(late time.Duration) {
	ns := float64(late.Nanoseconds())
	if ns < 0 {
		ns = 0
	}

	j.mu.Lock()
	j.count++
	delta := ns - j.mean
	j.mean += delta / float64(j.count)
	j.m2 += delta * (ns - j.mean)
	if ns > j.max {
		j.max = ns
	}
	j.mu.Unlock()
}

func (j *JitterStats) overrun() {
	j.mu.Lock()
	j.overruns++
	j.mu.Unlock()
}

// Snapshot returns the current summary.
func (j *JitterStats) Snapshot() JitterReport {
	j.mu.Lock()
	defer j.mu.Unlock()

	r := JitterReport{
		Cycles:   j.count,
		Mean:     time.Duration(j.mean),
		Max:      time.Duration(j.max),
		Overruns: j.overruns,
	}
	if j.count > 1 {
		r.StdDev = time.Duration(math.Sqrt(j.m2 / float64(j.count-1)))
	}
	return r
}

// RunPeriodic calls fn once per period against absolute deadlines: the
// n-th call is due at start + n*period, so one late cycle does not
// shift every following one. When fn itself overruns a whole period the
// missed deadlines are skipped and counted, not replayed.
//
// Returns nil when ctx ends, otherwise the first error from fn.
func RunPeriodic(ctx context.Context, period time.Duration, stats *JitterStats, fn func(now time.Time) error) error {
	if period <= 0 {
		period = time.Millisecond
	}

	next := time.Now().Add(period)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		now := time.Now()
		if stats != nil {
			stats.observe(now.Sub(next))
		}

		if err := fn(now); err != nil {
			return err
		}

		next = next.Add(period)
		if behind := time.Since(next); behind >= 0 {
			// Skip missed deadlines in one step.
			missed := behind/period + 1
			next = next.Add(missed * period)
			if stats != nil {
				stats.overrun()
			}
		}
		timer.Reset(time.Until(next))
	}
}
