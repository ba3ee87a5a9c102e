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

// Package transport defines the uniform Transport contract and the
// shared orchestration (TransportBase) every kind builds on.
package transport

import (
	"context"
	"time"

	"github.com/ctrlplane/devicetransport/capability"
	"github.com/ctrlplane/devicetransport/connstate"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/latency"
	"github.com/ctrlplane/devicetransport/stats"
)

// Transport is the capability set every concrete kind implements. Every
// implementation is a pointer to an interior-mutable struct (pointer
// receivers throughout): callers share a single Transport across many
// goroutines with no external synchronization.
type Transport interface {
	// Connect makes one connection attempt. Returns AlreadyConnected if
	// the current state is not Disconnected/Error.
	Connect(ctx context.Context) errs.Error

	// Disconnect is idempotent: a no-op if already disconnected.
	Disconnect(ctx context.Context) errs.Error

	// Send writes data, enforcing the capability's latency floor before
	// returning.
	Send(ctx context.Context, data []byte) errs.Error

	// Receive reads with the given timeout. An empty, nil-error result is
	// valid for kinds where "no data within timeout" is not a failure
	// (serial); other kinds define their own empty-read semantics.
	Receive(ctx context.Context, timeout time.Duration) ([]byte, errs.Error)

	// Transact is Send followed by Receive; each half runs its own
	// latency-enforcement window.
	Transact(ctx context.Context, data []byte, timeout time.Duration) ([]byte, errs.Error)

	// Reset drains any pending buffered data without closing the handle.
	Reset(ctx context.Context) errs.Error

	// Stats returns a snapshot; never fails.
	Stats() stats.Snapshot

	// CleanupResources aborts background tasks, closes the handle, and
	// clears the reconnect counter. Idempotent.
	CleanupResources() errs.Error

	Name() string
	TransportType() capability.Kind
	IsConnected() bool
	State() connstate.State
	Capabilities() capability.Capabilities
	Config() Config
	LatencyMetrics() latency.Metrics
}
