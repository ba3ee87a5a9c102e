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

// Package registry tracks the set of transports a long-running caller
// (cmd/transportctl's repl, or any future daemon that holds more than
// one connection open) has built, keyed by manifest entry ID, so
// switching back to a previously-connected entry reuses the live
// connection instead of tearing it down and reconnecting.
package registry

import (
	"sort"

	"github.com/ctrlplane/devicetransport/atomic"
	"github.com/ctrlplane/devicetransport/transport"
)

// Registry is a concurrent entry-ID to Transport table. The zero value
// is not usable; construct with New.
type Registry struct {
	sessions atomic.MapTyped[string, transport.Transport]
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{sessions: atomic.NewMapTyped[string, transport.Transport]()}
}

// Put records tr under id. If id already names a different live
// transport, the replaced one is cleaned up first so it never leaks a
// background reconnect goroutine or an open handle.
func (r *Registry) Put(id string, tr transport.Transport) {
	if prev, loaded := r.sessions.Swap(id, tr); loaded && prev != nil && prev != tr {
		_ = prev.CleanupResources()
	}
}

// Get returns the transport registered under id, if any.
func (r *Registry) Get(id string) (transport.Transport, bool) {
	return r.sessions.Load(id)
}

// Remove cleans up and forgets the transport registered under id, if any.
func (r *Registry) Remove(id string) {
	if tr, loaded := r.sessions.LoadAndDelete(id); loaded && tr != nil {
		_ = tr.CleanupResources()
	}
}

// IDs returns the currently-registered entry IDs, sorted for stable
// display in a "sessions" listing.
func (r *Registry) IDs() []string {
	var ids []string
	r.sessions.Range(func(id string, _ transport.Transport) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

// CloseAll cleans up every registered transport. Callers defer this once
// at process shutdown rather than tracking individual sessions.
func (r *Registry) CloseAll() {
	r.sessions.Range(func(_ string, tr transport.Transport) bool {
		_ = tr.CleanupResources()
		return true
	})
}
