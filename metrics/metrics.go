// Package metrics tracks process-local operational counters for the
// prover broker. There is no registry and no exporter; the broker logs
// an overview at shutdown and tests read values directly.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing count of events.
type Counter struct {
	name string
	n    atomic.Uint64
}

// NewCounter returns a named counter starting at zero.
func NewCounter(name string) *Counter { return &Counter{name: name} }

// Inc adds one event to the counter.
func (c *Counter) Inc() { c.n.Add(1) }

// Add adds n events to the counter.
func (c *Counter) Add(n uint64) { c.n.Add(n) }

// Value returns the number of events counted so far.
func (c *Counter) Value() uint64 { return c.n.Load() }

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Gauge is an instantaneous level, typically in-flight work.
type Gauge struct {
	name string
	v    atomic.Int64
}

// NewGauge returns a named gauge starting at zero.
func NewGauge(name string) *Gauge { return &Gauge{name: name} }

// Set stores v as the current level.
func (g *Gauge) Set(v int64) { g.v.Store(v) }

// Inc raises the level by one.
func (g *Gauge) Inc() { g.v.Add(1) }

// Dec lowers the level by one.
func (g *Gauge) Dec() { g.v.Add(-1) }

// Value returns the current level.
func (g *Gauge) Value() int64 { return g.v.Load() }

// Name returns the metric name.
func (g *Gauge) Name() string { return g.name }

// Summary aggregates observed values into count, total and extrema.
// Proof pipelines run for seconds to minutes, so extrema and a mean
// tell an operator what quantile buckets would.
type Summary struct {
	name string

	mu    sync.Mutex
	count uint64
	total float64
	min   float64
	max   float64
}

// NewSummary returns a named empty summary.
func NewSummary(name string) *Summary { return &Summary{name: name} }

// Observe folds one value into the summary.
func (s *Summary) Observe(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 || v < s.min {
		s.min = v
	}
	if s.count == 0 || v > s.max {
		s.max = v
	}
	s.count++
	s.total += v
}

// SummaryStats is a point-in-time copy of a Summary's aggregates.
// Min, Max and Mean are zero when nothing has been observed.
type SummaryStats struct {
	Count uint64
	Total float64
	Min   float64
	Max   float64
	Mean  float64
}

// Stats returns a consistent snapshot of the summary.
func (s *Summary) Stats() SummaryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SummaryStats{Count: s.count, Total: s.total, Min: s.min, Max: s.max}
	if s.count > 0 {
		st.Mean = s.total / float64(s.count)
	}
	return st
}

// Name returns the metric name.
func (s *Summary) Name() string { return s.name }

// Time starts a stopwatch over s. The returned stop function records
// the elapsed time in seconds and returns it.
func Time(s *Summary) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		s.Observe(d.Seconds())
		return d
	}
}
