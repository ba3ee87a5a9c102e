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

// Package mock is a deterministic test double for transport.Transport,
// used both as this repository's own test fixture for transport.Base and
// factory, and by higher-level consumers that need a transport without
// real I/O.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/ctrlplane/devicetransport/capability"
	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/transport"
)

// Config parameterizes Transport's injected failures.
type Config struct {
	ConnectFailures   int
	SendFailures      int
	ReceiveFailures   int
	LatencyMs         float64
	EnforceLatency    bool
	DisconnectAfterOps *uint32
	ReceiveData       []byte
}

// Transport is MockTransport.
type Transport struct {
	*transport.Base

	mu sync.Mutex

	cfg Config

	connectAttempts int
	sendAttempts    int
	receiveAttempts int
	opCount         uint32

	lastSent     []byte
	sentHistory  [][]byte
	injected     []byte

	lastOpAt time.Time
	clk      clock.Clock
}

// New returns a Transport with cfg as its initial mock behavior.
var _ transport.Transport = (*Transport)(nil)

func New(name string, tcfg transport.Config, cfg Config, log logger.Logger, clk clock.Clock) *Transport {
	if clk == nil {
		clk = clock.Real()
	}
	tcfg.Kind = capability.Serial // arbitrary; mock doesn't have its own capability.Kind
	t := &Transport{cfg: cfg, clk: clk}
	t.Base = transport.NewBase(name, tcfg, log, clk, t.doConnect, t.doDisconnect)
	return t
}

// SetMockConfig replaces the behavior configuration, for test orchestration.
func (t *Transport) SetMockConfig(cfg Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
}

// InjectReceiveData queues data to be returned by the next Receive that
// isn't satisfied by cfg.ReceiveData.
func (t *Transport) InjectReceiveData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.injected = append([]byte(nil), data...)
}

// GetSentData returns every payload handed to Send, in order.
func (t *Transport) GetSentData() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sentHistory))
	copy(out, t.sentHistory)
	return out
}

// ResetCounters zeroes the attempt/op counters without touching cfg.
func (t *Transport) ResetCounters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectAttempts = 0
	t.sendAttempts = 0
	t.receiveAttempts = 0
	t.opCount = 0
}

func (t *Transport) doConnect(ctx context.Context) errs.Error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connectAttempts++
	if t.connectAttempts <= t.cfg.ConnectFailures {
		return errs.New(errs.KindConnectionFailed, "mock connect failure injected")
	}
	return nil
}

func (t *Transport) doDisconnect() errs.Error {
	return nil
}

func (t *Transport) enforceSpacing() {
	if !t.cfg.EnforceLatency || t.cfg.LatencyMs <= 0 {
		return
	}
	if t.lastOpAt.IsZero() {
		t.lastOpAt = t.clk.Now()
		return
	}
	elapsed := t.clk.Now().Sub(t.lastOpAt)
	floor := time.Duration(t.cfg.LatencyMs * float64(time.Millisecond))
	if elapsed < floor {
		t.clk.Sleep(floor - elapsed)
	}
	t.lastOpAt = t.clk.Now()
}

// checkDisconnectAfterOps implements the "(n+1)th operation fails and
// transitions to Disconnected" rule. Must be called with t.mu held.
func (t *Transport) checkDisconnectAfterOps() errs.Error {
	if t.cfg.DisconnectAfterOps == nil {
		return nil
	}
	t.opCount++
	if t.opCount > *t.cfg.DisconnectAfterOps {
		return errs.New(errs.KindConnectionFailed, "mock disconnect-after-ops triggered")
	}
	return nil
}

// Send implements transport.Transport.
func (t *Transport) Send(ctx context.Context, data []byte) errs.Error {
	_, err := t.RunOperation(ctx, "send", func(ctx context.Context) (int, errs.Error) {
		t.mu.Lock()
		defer t.mu.Unlock()

		t.enforceSpacing()

		if derr := t.checkDisconnectAfterOps(); derr != nil {
			return 0, derr
		}

		t.sendAttempts++
		if t.sendAttempts <= t.cfg.SendFailures {
			return 0, errs.New(errs.KindIoError, "mock send failure injected")
		}

		cp := append([]byte(nil), data...)
		t.lastSent = cp
		t.sentHistory = append(t.sentHistory, cp)
		return len(data), nil
	})
	if err == nil {
		t.RecordBytesSent(len(data))
	}
	return err
}

// Receive implements transport.Transport.
func (t *Transport) Receive(ctx context.Context, timeout time.Duration) ([]byte, errs.Error) {
	n, err := t.RunOperation(ctx, "receive", func(ctx context.Context) (int, errs.Error) {
		t.mu.Lock()
		defer t.mu.Unlock()

		t.enforceSpacing()

		if derr := t.checkDisconnectAfterOps(); derr != nil {
			return 0, derr
		}

		t.receiveAttempts++
		if t.receiveAttempts <= t.cfg.ReceiveFailures {
			return 0, errs.New(errs.KindTimeout, "mock receive failure injected")
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	_ = n

	t.mu.Lock()
	defer t.mu.Unlock()

	var out []byte
	switch {
	case t.cfg.ReceiveData != nil:
		out = append([]byte(nil), t.cfg.ReceiveData...)
	case t.injected != nil:
		out = t.injected
		t.injected = nil
	default:
		out = append([]byte(nil), t.lastSent...)
	}

	t.RecordBytesReceived(len(out))
	return out, nil
}

// Transact implements transport.Transport.
func (t *Transport) Transact(ctx context.Context, data []byte, timeout time.Duration) ([]byte, errs.Error) {
	if err := t.Send(ctx, data); err != nil {
		return nil, err
	}
	return t.Receive(ctx, timeout)
}

// Reset implements transport.Transport.
func (t *Transport) Reset(ctx context.Context) errs.Error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = nil
	t.injected = nil
	return nil
}
