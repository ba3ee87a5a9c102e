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

// Package serial implements a blocking serial port transport offloaded
// to goroutines, plus the hot-plug monitor and port prober. USB-VID
// device classification lives in package ports.
package serial

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hootrhino/goserial"

	"github.com/ctrlplane/devicetransport/capability"
	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/ports"
	"github.com/ctrlplane/devicetransport/transport"
)

var _ transport.Transport = (*Transport)(nil)

// portHandle is the subset of goserial's port type this package depends
// on, so tests can substitute a fake without a real device attached.
type portHandle interface {
	io.ReadWriteCloser
	Flush() error
}

// Transport is SerialTransport.
type Transport struct {
	*transport.Base

	mu       sync.Mutex
	handle   portHandle
	enum     ports.Enumerator
	openFunc func(cfg transport.SerialSettings) (portHandle, error)

	monitorMu     sync.Mutex
	monitorCancel context.CancelFunc
}

// New returns a Transport bound to cfg.Serial. If auto_reconnect is set,
// the hot-plug monitor is started immediately, matching the original
// behavior of detecting device arrival before the first connect.
func New(name string, cfg transport.Config, log logger.Logger, clk clock.Clock) *Transport {
	cfg.Kind = capability.Serial
	t := &Transport{enum: ports.Default()}
	t.openFunc = t.defaultOpen
	t.Base = transport.NewBase(name, cfg, log, clk, t.doConnect, t.doDisconnect)

	if cfg.AutoReconnect {
		t.startMonitor()
	}
	return t
}

func (t *Transport) defaultOpen(s transport.SerialSettings) (portHandle, error) {
	return goserial.Open(&goserial.Config{
		Address:  s.Port,
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		Parity:   s.Parity,
		StopBits: s.StopBits,
		Timeout:  200 * time.Millisecond,
	})
}

func (t *Transport) doConnect(ctx context.Context) errs.Error {
	cfg := t.Config().Serial
	if cfg.BaudRate <= 0 {
		return errs.New(errs.KindConfigError, "invalid baud rate")
	}

	handle, err := t.openFunc(cfg)
	if err != nil {
		return errs.Wrap(errs.KindConnectionFailed, "serial open", err)
	}

	t.mu.Lock()
	t.handle = handle
	t.mu.Unlock()
	return nil
}

func (t *Transport) doDisconnect() errs.Error {
	t.mu.Lock()
	handle := t.handle
	t.handle = nil
	t.mu.Unlock()

	if handle == nil {
		return nil
	}
	if err := handle.Close(); err != nil {
		return errs.Wrap(errs.KindIoError, "serial close", err)
	}
	return nil
}

// Send implements transport.Transport.
func (t *Transport) Send(ctx context.Context, data []byte) errs.Error {
	_, err := t.RunOperation(ctx, "send", func(ctx context.Context) (int, errs.Error) {
		t.mu.Lock()
		handle := t.handle
		t.mu.Unlock()
		if handle == nil {
			return 0, errs.New(errs.KindNotConnected, "serial port is not open")
		}

		n, werr := handle.Write(data)
		if werr != nil {
			return n, errs.Wrap(errs.KindIoError, "serial write", werr)
		}
		if ferr := handle.Flush(); ferr != nil {
			return n, errs.Wrap(errs.KindConnectionFailed, "serial flush failed", ferr)
		}
		return n, nil
	})
	if err == nil {
		t.RecordBytesSent(len(data))
	}
	return err
}

// Receive implements transport.Transport. A read timeout with zero bytes
// is not an error on serial: it returns an empty slice, unlike TCP's
// peer-close convention.
func (t *Transport) Receive(ctx context.Context, timeout time.Duration) ([]byte, errs.Error) {
	var buf []byte
	n, err := t.RunOperation(ctx, "receive", func(ctx context.Context) (int, errs.Error) {
		t.mu.Lock()
		handle := t.handle
		t.mu.Unlock()
		if handle == nil {
			return 0, errs.New(errs.KindNotConnected, "serial port is not open")
		}

		size := t.Config().ReadBufferSize
		if size <= 0 {
			size = 4096
		}
		buf = make([]byte, size)

		n, rerr := handle.Read(buf)
		if rerr != nil {
			if isTimeoutErr(rerr) {
				return 0, nil
			}
			return 0, errs.Wrap(errs.KindIoError, "serial read", rerr)
		}
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	out := buf[:n]
	t.RecordBytesReceived(n)
	return out, nil
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// Transact implements transport.Transport.
func (t *Transport) Transact(ctx context.Context, data []byte, timeout time.Duration) ([]byte, errs.Error) {
	if err := t.Send(ctx, data); err != nil {
		return nil, err
	}
	return t.Receive(ctx, timeout)
}

// Reset flushes the port's pending I/O.
func (t *Transport) Reset(ctx context.Context) errs.Error {
	t.mu.Lock()
	handle := t.handle
	t.mu.Unlock()
	if handle == nil {
		return nil
	}
	if err := handle.Flush(); err != nil {
		return errs.Wrap(errs.KindIoError, "serial reset flush", err)
	}
	return nil
}

// healthProbe checks the handle is still alive by flushing it; a flush
// failure is this transport's "true disconnect" signal.
func (t *Transport) healthProbe() bool {
	t.mu.Lock()
	handle := t.handle
	t.mu.Unlock()
	if handle == nil {
		return false
	}
	return handle.Flush() == nil
}

// CleanupResources overrides Base's to also stop the hot-plug monitor.
func (t *Transport) CleanupResources() errs.Error {
	t.stopMonitor()
	return t.Base.CleanupResources()
}
