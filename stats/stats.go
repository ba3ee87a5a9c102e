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

// Package stats holds the monotonically accumulating per-transport
// counters, read-only to everyone but the owning transport.
package stats

import (
	"sync/atomic"
	"time"

	libatomic "github.com/ctrlplane/devicetransport/atomic"
)

// Snapshot is the read-only view returned by Counters.Snapshot.
type Snapshot struct {
	BytesSent               uint64
	BytesReceived           uint64
	TransactionsSuccess     uint64
	TransactionsFailed      uint64
	AvgLatencyMs            float64
	MaxLatencyMs            float64
	ReconnectCount          uint32
	LastError               string
	UptimeSeconds           uint64
	LatencyEnforcements     uint64
	LastEnforcementMs       float64
	HasLastEnforcementMs    bool
	TotalEnforcementDelayMs float64
}

// Counters is the live, concurrency-safe accumulator behind a transport's
// Stats() call. Every field is either a stdlib atomic or one of the kept
// atomic.Value[T] cells, so no mutex is needed on the hot path: each stats
// update is atomic per operation.
type Counters struct {
	bytesSent           atomic.Uint64
	bytesReceived       atomic.Uint64
	transactionsSuccess atomic.Uint64
	transactionsFailed  atomic.Uint64
	reconnectCount      atomic.Uint32
	latencyEnforcements atomic.Uint64

	// running mean state, protected by its own narrow lock-free pair
	latencyCount    atomic.Uint64
	latencySumMs    libatomic.Value[float64]
	maxLatencyMs    libatomic.Value[float64]
	lastError       libatomic.Value[string]
	startedAt       libatomic.Value[int64] // unix nanos, set on connect
	lastEnforceMs   libatomic.Value[float64]
	hasLastEnforce  atomic.Bool
	totalEnforceMs  libatomic.Value[float64]
}

// New returns a zeroed Counters ready for use.
func New() *Counters {
	return &Counters{
		latencySumMs:   libatomic.NewValue[float64](),
		maxLatencyMs:   libatomic.NewValue[float64](),
		lastError:      libatomic.NewValue[string](),
		startedAt:      libatomic.NewValue[int64](),
		lastEnforceMs:  libatomic.NewValue[float64](),
		totalEnforceMs: libatomic.NewValue[float64](),
	}
}

// MarkConnected records the wall-clock start of the uptime counter.
func (c *Counters) MarkConnected(now time.Time) {
	c.startedAt.Store(now.UnixNano())
}

// RecordSend accounts for a successful send of n bytes.
func (c *Counters) RecordSend(n int) {
	c.bytesSent.Add(uint64(n))
}

// RecordReceive accounts for a successful receive of n bytes.
func (c *Counters) RecordReceive(n int) {
	c.bytesReceived.Add(uint64(n))
}

// RecordSuccess increments transactions_success and folds latencyMs into the
// running mean and max.
func (c *Counters) RecordSuccess(latencyMs float64) {
	c.transactionsSuccess.Add(1)
	c.recordLatency(latencyMs)
}

// RecordFailure increments transactions_failed and records the error text as
// the replace-on-each-error last_error field. Use this for a completed
// send/receive/transact call that failed.
func (c *Counters) RecordFailure(errText string) {
	c.transactionsFailed.Add(1)
	c.lastError.Store(errText)
}

// SetLastError records the error text without touching transactions_failed,
// for failures outside the send/receive/transact invariant (connect
// attempts, a reconnect task's permanent failure). A reconnect task's
// retryable failures go through RecordFailure instead.
func (c *Counters) SetLastError(errText string) {
	c.lastError.Store(errText)
}

func (c *Counters) recordLatency(ms float64) {
	n := c.latencyCount.Add(1)
	for {
		old := c.latencySumMs.Load()
		if c.latencySumMs.CompareAndSwap(old, old+ms) {
			_ = n
			break
		}
	}
	for {
		old := c.maxLatencyMs.Load()
		if ms <= old {
			break
		}
		if c.maxLatencyMs.CompareAndSwap(old, ms) {
			break
		}
	}
}

// RecordReconnect increments reconnect_count on a successful reconnect.
func (c *Counters) RecordReconnect() {
	c.reconnectCount.Add(1)
}

// RecordEnforcement records a latency-floor sleep of delayMs.
func (c *Counters) RecordEnforcement(delayMs float64) {
	c.latencyEnforcements.Add(1)
	c.lastEnforceMs.Store(delayMs)
	c.hasLastEnforce.Store(true)
	for {
		old := c.totalEnforceMs.Load()
		if c.totalEnforceMs.CompareAndSwap(old, old+delayMs) {
			break
		}
	}
}

// Snapshot returns a consistent-enough read of every counter. Individual
// fields may interleave with concurrent writers: only per-field atomicity
// is guaranteed, not a single consistent point-in-time view.
func (c *Counters) Snapshot(now time.Time) Snapshot {
	var uptime uint64
	if start := c.startedAt.Load(); start != 0 {
		uptime = uint64(now.Sub(time.Unix(0, start)).Seconds())
	}

	count := c.latencyCount.Load()
	var avg float64
	if count > 0 {
		avg = c.latencySumMs.Load() / float64(count)
	}

	return Snapshot{
		BytesSent:               c.bytesSent.Load(),
		BytesReceived:           c.bytesReceived.Load(),
		TransactionsSuccess:     c.transactionsSuccess.Load(),
		TransactionsFailed:      c.transactionsFailed.Load(),
		AvgLatencyMs:            avg,
		MaxLatencyMs:            c.maxLatencyMs.Load(),
		ReconnectCount:          c.reconnectCount.Load(),
		LastError:               c.lastError.Load(),
		UptimeSeconds:           uptime,
		LatencyEnforcements:     c.latencyEnforcements.Load(),
		LastEnforcementMs:       c.lastEnforceMs.Load(),
		HasLastEnforcementMs:    c.hasLastEnforce.Load(),
		TotalEnforcementDelayMs: c.totalEnforceMs.Load(),
	}
}
