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

// Package factory builds Transport values from manifest entries and
// walks the priority/fallback chain for ConnectBest.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/ctrlplane/devicetransport/capability"
	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/manifest"
	"github.com/ctrlplane/devicetransport/transport"
	"github.com/ctrlplane/devicetransport/transport/serial"
	"github.com/ctrlplane/devicetransport/transport/ssh"
	"github.com/ctrlplane/devicetransport/transport/tcp"
	"github.com/ctrlplane/devicetransport/transport/udp"
)

// Factory turns manifest entries into live Transport values, sharing one
// Logger and Clock across every transport it builds.
type Factory struct {
	Log logger.Logger
	Clk clock.Clock
}

// New constructs a Factory. A nil log/clk falls through to the per-kind
// transport constructors' own defaults (logger.Discard/clock.Real).
func New(log logger.Logger, clk clock.Clock) *Factory {
	return &Factory{Log: log, Clk: clk}
}

// Build constructs (but does not connect) the transport described by e,
// applying d's reconnect/timeout defaults to any field e's connection
// block left at its zero value.
func (f *Factory) Build(e manifest.Entry, d manifest.Defaults) (transport.Transport, error) {
	cfg, err := configFor(e, d)
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case capability.Serial:
		return serial.New(e.ID, cfg, f.Log, f.Clk), nil
	case capability.Tcp:
		return tcp.New(e.ID, cfg, f.Log, f.Clk), nil
	case capability.Udp:
		return udp.New(e.ID, cfg, f.Log, f.Clk), nil
	case capability.Ssh:
		return ssh.New(e.ID, cfg, f.Log, f.Clk), nil
	default:
		return nil, fmt.Errorf("factory: entry %q has unknown transport_type %q", e.ID, e.Connection.Type)
	}
}

// configFor maps one manifest entry's ConnectionDetails/Performance into
// a transport.Config, layering in the manifest's [defaults] table for
// anything the entry doesn't override.
func configFor(e manifest.Entry, d manifest.Defaults) (transport.Config, error) {
	cfg := transport.Config{
		AutoReconnect:        d.AutoReconnect,
		MaxReconnectAttempts: uint32(d.MaxReconnectAttempts),
		BaseReconnectDelay:   d.ReconnectDelay(),
		ReadTimeout:          d.ReadTimeout(),
	}

	if e.Performance.MaxLatencyMs > 0 {
		cfg.MinLatencyOverride = time.Duration(e.Performance.MaxLatencyMs) * time.Millisecond
	}

	c := e.Connection
	switch c.Type {
	case "Serial":
		cfg.Kind = capability.Serial
		cfg.Serial = transport.SerialSettings{
			Port:       c.Port,
			BaudRate:   c.BaudRate,
			DataBits:   8,
			Parity:     "N",
			StopBits:   1,
			AutoDetect: c.AutoDetect,
		}
	case "Tcp":
		cfg.Kind = capability.Tcp
		cfg.Tcp = transport.TcpSettings{Host: c.Host, Port: c.TcpPort, NoDelay: true}
	case "Udp":
		cfg.Kind = capability.Udp
		cfg.Udp = transport.UdpSettings{
			Host:             c.Host,
			Port:             c.TcpPort,
			BindPort:         c.BindPort,
			Broadcast:        c.Broadcast,
			RequireHandshake: d.AutoReconnect && c.Broadcast,
		}
	case "Ssh":
		cfg.Kind = capability.Ssh
		authMethod := transport.SshAuthPassword
		if c.AuthMethod == "Key" {
			authMethod = transport.SshAuthKey
		}
		cfg.Ssh = transport.SshSettings{
			Host:       c.Host,
			Port:       c.TcpPort,
			Username:   c.Username,
			AuthMethod: authMethod,
			Password:   c.AuthPassword,
			KeyPath:    c.AuthPath,
		}
	default:
		return transport.Config{}, fmt.Errorf("factory: entry %q has unrecognized connection type %q", e.ID, c.Type)
	}

	return cfg, nil
}

// ConnectBest walks enabled entries sorted by priority descending,
// attempting connect() on each; first success wins. An entry with a
// fallback-id is retried through its fallback on failure before moving
// to the next priority tier.
func (f *Factory) ConnectBest(ctx context.Context, m *manifest.Manifest) (transport.Transport, manifest.Entry, error) {
	entries := m.EnabledSortedByPriority()
	tried := make(map[string]bool, len(entries))

	for _, e := range entries {
		tr, connectedEntry, ok, err := f.tryEntry(ctx, m, e, tried)
		if err != nil {
			return nil, manifest.Entry{}, err
		}
		if ok {
			return tr, connectedEntry, nil
		}
	}

	return nil, manifest.Entry{}, errs.New(errs.KindConnectionFailed, "connect_best: no enabled transport entry connected")
}

// tryEntry attempts e, then (on failure) recursively follows its
// fallback-id chain, returning the entry that actually connected.
func (f *Factory) tryEntry(ctx context.Context, m *manifest.Manifest, e manifest.Entry, tried map[string]bool) (transport.Transport, manifest.Entry, bool, error) {
	if tried[e.ID] {
		return nil, manifest.Entry{}, false, nil
	}
	tried[e.ID] = true

	tr, err := f.Build(e, m.Defaults)
	if err != nil {
		return nil, manifest.Entry{}, false, err
	}

	if cerr := tr.Connect(ctx); cerr == nil {
		return tr, e, true, nil
	}

	if e.Fallback == "" {
		return nil, manifest.Entry{}, false, nil
	}

	fb, ok := m.ByID(e.Fallback)
	if !ok {
		return nil, manifest.Entry{}, false, nil
	}
	return f.tryEntry(ctx, m, fb, tried)
}
