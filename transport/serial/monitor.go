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

package serial

import (
	"context"
	"time"

	"github.com/ctrlplane/devicetransport/backoff"
	"github.com/ctrlplane/devicetransport/connstate"
)

const (
	monitorIntervalDisconnected = time.Second
	monitorIntervalConnected    = 2 * time.Second
	maxConsecutiveHealthFails   = 3
)

// monitorState carries the hot-plug loop's own counters, distinct from
// the caller's reconnect backoff: the monitor maintains its own backoff
// and its own counter, never sharing the caller's.
type monitorState struct {
	policy                 *backoff.Policy
	consecutiveHealthFails int
}

func (t *Transport) startMonitor() {
	t.monitorMu.Lock()
	if t.monitorCancel != nil {
		t.monitorMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.monitorCancel = cancel
	t.monitorMu.Unlock()

	go t.runMonitor(ctx)
}

func (t *Transport) stopMonitor() {
	t.monitorMu.Lock()
	cancel := t.monitorCancel
	t.monitorCancel = nil
	t.monitorMu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// runMonitor is the hot-plug loop: adaptive interval, enumerate, drive
// the three (was_connected, have_handle, in_enumeration) transitions via
// monitorTick. It reads the live Config on every iteration rather than a
// captured copy, so a config change takes effect on the next tick
// instead of reconnecting with stale defaults.
func (t *Transport) runMonitor(ctx context.Context) {
	st := &monitorState{policy: backoff.New(t.Config().BackoffConfig())}

	for {
		interval := monitorIntervalDisconnected
		if t.IsConnected() {
			interval = monitorIntervalConnected
		}

		select {
		case <-ctx.Done():
			return
		case <-t.Clock().After(interval):
		}

		t.monitorTick(ctx, st)
	}
}

// monitorTick runs exactly one hot-plug iteration.
func (t *Transport) monitorTick(ctx context.Context, st *monitorState) {
	cfg := t.Config().Serial
	inEnumeration := false
	if cfg.Port != "" {
		if infos, err := t.enum.List(); err == nil {
			for _, info := range infos {
				if info.Name == cfg.Port {
					inEnumeration = true
					break
				}
			}
		}
	}

	havePortHandle := t.hasHandle()
	wasConnected := t.State() == connstate.Connected

	switch {
	case !wasConnected && !havePortHandle && inEnumeration:
		if cerr := t.Connect(ctx); cerr == nil {
			st.consecutiveHealthFails = 0
			st.policy = backoff.New(t.Config().BackoffConfig())
		}

	case wasConnected && havePortHandle && !inEnumeration:
		_ = t.Disconnect(ctx)

	case wasConnected && havePortHandle && inEnumeration:
		if t.healthProbe() {
			st.consecutiveHealthFails = 0
		} else {
			st.consecutiveHealthFails++
			// A single false-positive health failure is tolerated
			// (Windows serial drivers occasionally flake on one flush);
			// three consecutive failures force a reopen so a truly dead
			// port is never missed.
			if st.consecutiveHealthFails >= maxConsecutiveHealthFails {
				_ = t.Disconnect(ctx)
				st.consecutiveHealthFails = 0
			}
		}
	}

	if !t.IsConnected() && inEnumeration && !t.hasHandle() {
		if delay, ok := st.policy.NextDelay(); ok {
			select {
			case <-ctx.Done():
				return
			case <-t.Clock().After(delay):
			}
			_ = t.Connect(ctx)
		}
	}
}

func (t *Transport) hasHandle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle != nil
}
