/*
 * MIT License
 *
 * Copyright (c) 2024 ctrlplane contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package latency implements a per-operation timing monitor: an
// RAII-style guard, a bounded sample history, percentile recomputation,
// and a capped violation log.
package latency

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-uuid"

	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/logger"
)

const (
	maxHistory        = 1000
	maxViolations     = 100
)

// bucketBounds are the upper edges of the fixed histogram buckets, in
// milliseconds; the last bucket (>1000) has no upper edge.
var bucketBounds = []float64{10, 25, 50, 75, 100, 150, 200, 500, 1000}

// Metrics is a point-in-time snapshot of the monitor's accumulated state.
type Metrics struct {
	Count      int
	SumMs      float64
	MinMs      float64
	MaxMs      float64
	AvgMs      float64
	P50        float64
	P95        float64
	P99        float64
	Violations int
	Histogram  [10]int // index i = bucketBounds[i] upper edge; index 9 = >1000
}

// Violation records a single measured-exceeds-budget event.
type Violation struct {
	ID          string
	TimestampS  float64 // seconds since monitor start
	Operation   string
	MeasuredMs  float64
	BudgetMs    float64
	Context     string
}

// Monitor owns no transport state and performs no I/O. All methods are
// safe for concurrent use.
type Monitor struct {
	clock  clock.Clock
	log    logger.Logger
	start  time.Time

	mu         sync.Mutex
	samples    []float64
	metrics    Metrics
	violations []Violation
}

// New returns a Monitor that timestamps relative to clk.Now() at creation.
func New(clk clock.Clock, log logger.Logger) *Monitor {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Monitor{clock: clk, log: log, start: clk.Now()}
}

// Guard is the RAII-style handle returned by Start. Callers must call
// Complete, CompleteWithContext, or Abandon exactly once; a Guard that is
// instead dropped (garbage collected) without any of those logs a
// diagnostic via its finalizer rather than silently discarding the
// measurement.
type Guard struct {
	mon       *Monitor
	operation string
	budgetMs  float64
	begin     time.Time
	done      bool
}

// Start begins timing operation against a budget (the capability's
// MinLatency expressed in milliseconds, or 0 for "no budget"). The
// returned Guard carries a finalizer so an abandoned guard is logged
// instead of silently discarded.
func (m *Monitor) Start(operation string, budgetMs float64) *Guard {
	g := &Guard{mon: m, operation: operation, budgetMs: budgetMs, begin: m.clock.Now()}
	runtime.SetFinalizer(g, finalizeAbandonedGuard)
	return g
}

func finalizeAbandonedGuard(g *Guard) {
	if g.done {
		return
	}
	g.done = true
	g.mon.log.Log(logger.WarnLevel, "latency", "guard garbage collected without Complete or Abandon", logger.Fields{
		"operation": g.operation,
	})
}

// Complete records the elapsed time with no extra context.
func (g *Guard) Complete() {
	g.CompleteWithContext("")
}

// CompleteWithContext records the elapsed time, attaching ctx to any
// violation this completion produces.
func (g *Guard) CompleteWithContext(ctx string) {
	if g.done {
		return
	}
	g.done = true
	runtime.SetFinalizer(g, nil)
	elapsed := g.mon.clock.Now().Sub(g.begin)
	g.mon.record(g.operation, float64(elapsed)/float64(time.Millisecond), g.budgetMs, ctx)
}

// Abandon marks the guard complete without recording a sample, used when an
// operation is known to have never really started (e.g. rejected before any
// I/O). It exists so callers never need a defer that silently swallows an
// incomplete guard.
func (g *Guard) Abandon() {
	g.done = true
	runtime.SetFinalizer(g, nil)
}

func (m *Monitor) record(operation string, measuredMs, budgetMs float64, ctx string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = append(m.samples, measuredMs)
	if len(m.samples) > maxHistory {
		m.samples = m.samples[len(m.samples)-maxHistory:]
	}

	m.metrics.Count++
	m.metrics.SumMs += measuredMs
	if m.metrics.Count == 1 || measuredMs < m.metrics.MinMs {
		m.metrics.MinMs = measuredMs
	}
	if measuredMs > m.metrics.MaxMs {
		m.metrics.MaxMs = measuredMs
	}
	m.metrics.AvgMs = m.metrics.SumMs / float64(m.metrics.Count)

	bucket(measuredMs, &m.metrics.Histogram)
	m.recomputePercentilesLocked()

	if budgetMs > 0 && measuredMs > budgetMs {
		m.metrics.Violations++
		id, err := uuid.GenerateUUID()
		if err != nil {
			id = ""
		}
		v := Violation{
			ID:         id,
			TimestampS: m.clock.Now().Sub(m.start).Seconds(),
			Operation:  operation,
			MeasuredMs: measuredMs,
			BudgetMs:   budgetMs,
			Context:    ctx,
		}
		m.violations = append(m.violations, v)
		if len(m.violations) > maxViolations {
			m.violations = m.violations[len(m.violations)-maxViolations:]
		}
		m.log.Log(logger.WarnLevel, "latency", "operation exceeded budget", logger.Fields{
			"operation":   operation,
			"measured_ms": measuredMs,
			"budget_ms":   budgetMs,
			"violation_id": id,
		})
	}
}

func bucket(ms float64, hist *[10]int) {
	for i, edge := range bucketBounds {
		if ms < edge {
			hist[i]++
			return
		}
	}
	hist[len(bucketBounds)]++
}

func (m *Monitor) recomputePercentilesLocked() {
	n := len(m.samples)
	if n == 0 {
		return
	}
	sorted := make([]float64, n)
	copy(sorted, m.samples)
	sort.Float64s(sorted)

	m.metrics.P50 = percentile(sorted, 0.50)
	m.metrics.P95 = percentile(sorted, 0.95)
	m.metrics.P99 = percentile(sorted, 0.99)
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(p * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// Snapshot returns the current Metrics.
func (m *Monitor) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// Violations returns a copy of the bounded, most-recent-last violation log.
func (m *Monitor) Violations() []Violation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Violation, len(m.violations))
	copy(out, m.violations)
	return out
}
