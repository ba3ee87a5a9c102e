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

package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ctrlplane/devicetransport/backoff"
	"github.com/ctrlplane/devicetransport/capability"
	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/connstate"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/latency"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/stats"
)

// ConnectFunc performs the kind-specific handle-open work. It must not
// touch Base's state or stats cells; Base drives every transition.
type ConnectFunc func(ctx context.Context) errs.Error

// DisconnectFunc performs the kind-specific handle-close work. Must be
// idempotent at the caller's discretion; Base only calls it once per
// Disconnect/CleanupResources invocation.
type DisconnectFunc func() errs.Error

// Base implements the shared half of every transport kind: state, stats,
// the reconnect-task lifecycle, and latency enforcement. Concrete
// transports embed it and supply ConnectFunc/DisconnectFunc plus their
// own I/O in Send/Receive, wrapped through RunOperation.
//
// Lock-ordering discipline: state -> handle -> stats. Base never holds
// its own state lock while calling into connectFn/disconnectFn, so a
// kind's own handle lock nests safely underneath.
type Base struct {
	name string
	cfg  Config
	caps capability.Capabilities
	log  logger.Logger
	clk  clock.Clock
	lat  *latency.Monitor
	st   *stats.Counters

	connectFn    ConnectFunc
	disconnectFn DisconnectFunc

	stateMu sync.Mutex
	state   connstate.State

	connectOnce singleflight.Group

	reconnectMu     sync.Mutex
	reconnectCancel context.CancelFunc
	reconnectGroup  *errgroup.Group

	cleanupOnce sync.Once

	hadFailedAttempt atomic.Bool
}

// NewBase constructs a Base. name is the transport's display name;
// connectFn/disconnectFn perform the kind-specific I/O.
func NewBase(name string, cfg Config, log logger.Logger, clk clock.Clock, connectFn ConnectFunc, disconnectFn DisconnectFunc) *Base {
	if log == nil {
		log = logger.Discard()
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Base{
		name:         name,
		cfg:          cfg,
		caps:         cfg.Capabilities(),
		log:          log,
		clk:          clk,
		lat:          latency.New(clk, log),
		st:           stats.New(),
		connectFn:    connectFn,
		disconnectFn: disconnectFn,
		state:        connstate.Disconnected,
	}
}

func (b *Base) Name() string                           { return b.name }
func (b *Base) TransportType() capability.Kind          { return b.cfg.Kind }
func (b *Base) Config() Config                          { return b.cfg }
func (b *Base) Capabilities() capability.Capabilities   { return b.caps }
func (b *Base) Stats() stats.Snapshot                   { return b.st.Snapshot(b.clk.Now()) }
func (b *Base) LatencyMetrics() latency.Metrics         { return b.lat.Snapshot() }

// RecordBytesSent folds n bytes into bytes_sent. Concrete transports call
// this from their Send implementation after a successful RunOperation.
func (b *Base) RecordBytesSent(n int) { b.st.RecordSend(n) }

// RecordBytesReceived folds n bytes into bytes_received.
func (b *Base) RecordBytesReceived(n int) { b.st.RecordReceive(n) }

// Clock exposes the injected Clock so concrete transports can share it for
// their own I/O deadlines.
func (b *Base) Clock() clock.Clock { return b.clk }

// Logger exposes the injected Logger for concrete transports' own
// diagnostics (e.g. the serial hot-plug monitor).
func (b *Base) Logger() logger.Logger { return b.log }

func (b *Base) State() connstate.State {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.state
}

func (b *Base) IsConnected() bool {
	return b.State().IsConnected()
}

func (b *Base) setState(s connstate.State) {
	b.stateMu.Lock()
	b.state = s
	b.stateMu.Unlock()
}

// Connect makes exactly one connection attempt; callers (or the
// reconnect task) decide whether to retry. Concurrent Connect calls are
// coalesced via singleflight so only one attempt runs at a time.
func (b *Base) Connect(ctx context.Context) errs.Error {
	cur := b.State()
	if cur != connstate.Disconnected && cur != connstate.Error {
		return errs.New(errs.KindAlreadyConnected, "transport is not disconnected")
	}

	b.setState(connstate.Connecting)

	v, _, _ := b.connectOnce.Do(b.name, func() (any, error) {
		return b.connectFn(ctx), nil
	})

	if v != nil {
		cerr := v.(errs.Error)
		if cerr.Kind().Permanent() {
			b.setState(connstate.Error)
		} else {
			b.setState(connstate.Disconnected)
		}
		b.st.SetLastError(cerr.Error())
		b.hadFailedAttempt.Store(true)
		return cerr
	}

	b.setState(connstate.Connected)
	b.st.MarkConnected(b.clk.Now())
	if b.hadFailedAttempt.Swap(false) {
		b.st.RecordReconnect()
	}
	return nil
}

// Disconnect is idempotent: a no-op if already disconnected.
func (b *Base) Disconnect(ctx context.Context) errs.Error {
	if b.State() == connstate.Disconnected {
		return nil
	}

	b.cancelReconnect()

	var derr errs.Error
	if b.disconnectFn != nil {
		derr = b.disconnectFn()
	}
	b.setState(connstate.Disconnected)
	return derr
}

// CleanupResources is idempotent and safe from any state: it aborts
// background tasks, closes the handle, and clears reconnect state.
// Subsequent calls are no-ops.
func (b *Base) CleanupResources() errs.Error {
	var result errs.Error
	b.cleanupOnce.Do(func() {
		b.cancelReconnect()
		if b.disconnectFn != nil {
			result = b.disconnectFn()
		}
		b.setState(connstate.Disconnected)
	})
	return result
}

func (b *Base) cancelReconnect() {
	b.reconnectMu.Lock()
	cancel := b.reconnectCancel
	b.reconnectCancel = nil
	b.reconnectGroup = nil
	b.reconnectMu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// TriggerReconnect starts the background reconnection orchestration.
// Call it after a retryable Send/Receive failure when cfg.AutoReconnect is
// set. It cancels any prior reconnect task and spawns a new one; the
// caller's own error is unaffected and should still be returned to its
// caller immediately.
func (b *Base) TriggerReconnect() {
	if !b.cfg.AutoReconnect {
		return
	}

	b.cancelReconnect()
	b.setState(connstate.Disconnected)

	ctx, cancel := context.WithCancel(context.Background())
	grp, gctx := errgroup.WithContext(ctx)

	b.reconnectMu.Lock()
	b.reconnectCancel = cancel
	b.reconnectGroup = grp
	b.reconnectMu.Unlock()

	grp.Go(func() error {
		b.runReconnectLoop(gctx)
		return nil
	})
}

func (b *Base) runReconnectLoop(ctx context.Context) {
	b.setState(connstate.Reconnecting)
	policy := backoff.New(b.cfg.BackoffConfig())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delay, ok := policy.NextDelay()
		if !ok {
			b.setState(connstate.Error)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-b.clk.After(delay):
		}

		b.setState(connstate.Reconnecting)

		if cerr := b.connectFn(ctx); cerr != nil {
			if cerr.Kind().Permanent() {
				b.setState(connstate.Error)
				b.st.SetLastError(cerr.Error())
				return
			}
			b.st.RecordFailure(cerr.Error())
			b.log.Log(logger.WarnLevel, "transport.reconnect", "reconnect attempt failed", logger.Fields{
				"transport": b.name,
				"error":     cerr.Error(),
			})
			continue
		}

		b.setState(connstate.Connected)
		b.st.RecordReconnect()
		b.st.MarkConnected(b.clk.Now())
		return
	}
}

// RunOperation wraps the latency-enforcement invariant around fn: it
// requires Connected state, times fn, records success/failure stats, and
// on success sleeps out any shortfall against the capability's latency
// floor before returning.
func (b *Base) RunOperation(ctx context.Context, operation string, fn func(ctx context.Context) (int, errs.Error)) (int, errs.Error) {
	if !b.IsConnected() {
		return 0, errs.New(errs.KindNotConnected, "transport is not connected")
	}

	guard := b.lat.Start(operation, float64(b.caps.MinLatency)/float64(time.Millisecond))
	begin := b.clk.Now()

	n, opErr := fn(ctx)

	elapsed := b.clk.Now().Sub(begin)
	guard.Complete()

	if opErr != nil {
		b.st.RecordFailure(opErr.Error())
		if opErr.Kind() == errs.KindConnectionFailed {
			b.setState(connstate.Disconnected)
		}
		if opErr.Kind().Retryable() && b.cfg.AutoReconnect {
			b.TriggerReconnect()
		}
		return n, opErr
	}

	b.st.RecordSuccess(float64(elapsed) / float64(time.Millisecond))

	if floor := b.caps.MinLatency; floor > elapsed {
		remainder := floor - elapsed
		b.clk.Sleep(remainder)
		b.st.RecordEnforcement(float64(remainder) / float64(time.Millisecond))
	}

	return n, nil
}
