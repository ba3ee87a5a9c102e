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

// Package tcp implements a stream-oriented socket transport with a
// zero-byte-read-is-peer-close contract.
package tcp

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ctrlplane/devicetransport/capability"
	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/transport"
)

var _ transport.Transport = (*Transport)(nil)

// Transport is TcpTransport.
type Transport struct {
	*transport.Base

	mu   sync.Mutex
	conn net.Conn
}

// New returns a Transport bound to cfg.Tcp.Host:cfg.Tcp.Port.
func New(name string, cfg transport.Config, log logger.Logger, clk clock.Clock) *Transport {
	cfg.Kind = capability.Tcp
	t := &Transport{}
	t.Base = transport.NewBase(name, cfg, log, clk, t.doConnect, t.doDisconnect)
	return t
}

// newAccepted wraps an already-established net.Conn (from a Server's
// Accept) in a Transport whose connect step is a no-op, since the
// handshake already happened at the socket layer.
func newAccepted(name string, cfg transport.Config, log logger.Logger, clk clock.Clock, conn net.Conn) *Transport {
	cfg.Kind = capability.Tcp
	t := &Transport{conn: conn}
	t.Base = transport.NewBase(name, cfg, log, clk, func(context.Context) errs.Error { return nil }, t.doDisconnect)
	return t
}

func (t *Transport) doConnect(ctx context.Context) errs.Error {
	cfg := t.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Tcp.Host, cfg.Tcp.Port)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errs.Wrap(errs.KindConnectionFailed, "tcp dial", err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(cfg.Tcp.NoDelay)
		if cfg.Tcp.KeepAlive > 0 {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(cfg.Tcp.KeepAlive)
		}
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	return nil
}

func (t *Transport) doDisconnect() errs.Error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return errs.Wrap(errs.KindIoError, "tcp close", err)
	}
	return nil
}

// Send implements transport.Transport: writes fully and the kernel buffer
// is flushed implicitly by TCP_NODELAY when configured.
func (t *Transport) Send(ctx context.Context, data []byte) errs.Error {
	_, err := t.RunOperation(ctx, "send", func(ctx context.Context) (int, errs.Error) {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn == nil {
			return 0, errs.New(errs.KindNotConnected, "tcp connection is not open")
		}

		if wt := t.Config().WriteTimeout; wt > 0 {
			_ = conn.SetWriteDeadline(t.Clock().Now().Add(wt))
		}

		n, werr := conn.Write(data)
		if werr != nil {
			if isTimeout(werr) {
				return n, errs.Wrap(errs.KindTimeout, "tcp write timeout", werr)
			}
			return n, errs.Wrap(errs.KindIoError, "tcp write", werr)
		}
		return n, nil
	})
	if err == nil {
		t.RecordBytesSent(len(data))
	}
	return err
}

// Receive implements transport.Transport. A zero-byte read means the peer
// closed the connection: state transitions to Disconnected and
// KindConnectionFailed is returned.
func (t *Transport) Receive(ctx context.Context, timeout time.Duration) ([]byte, errs.Error) {
	var buf []byte
	n, err := t.RunOperation(ctx, "receive", func(ctx context.Context) (int, errs.Error) {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn == nil {
			return 0, errs.New(errs.KindNotConnected, "tcp connection is not open")
		}

		size := t.Config().ReadBufferSize
		if size <= 0 {
			size = 4096
		}
		buf = make([]byte, size)

		if timeout > 0 {
			_ = conn.SetReadDeadline(t.Clock().Now().Add(timeout))
		}

		n, rerr := conn.Read(buf)
		if n == 0 && rerr == io.EOF {
			return 0, errs.New(errs.KindConnectionFailed, "Connection closed by peer")
		}
		if rerr != nil {
			if isTimeout(rerr) {
				return 0, errs.Wrap(errs.KindTimeout, "tcp read timeout", rerr)
			}
			return 0, errs.Wrap(errs.KindIoError, "tcp read", rerr)
		}
		if n == 0 {
			return 0, errs.New(errs.KindConnectionFailed, "Connection closed by peer")
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

// Transact implements transport.Transport.
func (t *Transport) Transact(ctx context.Context, data []byte, timeout time.Duration) ([]byte, errs.Error) {
	if err := t.Send(ctx, data); err != nil {
		return nil, err
	}
	return t.Receive(ctx, timeout)
}

// Reset drains the socket by repeatedly reading with a 10ms timeout
// until empty.
func (t *Transport) Reset(ctx context.Context) errs.Error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}

	buf := make([]byte, 4096)
	for {
		_ = conn.SetReadDeadline(t.Clock().Now().Add(10 * time.Millisecond))
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			break
		}
	}
	_ = conn.SetReadDeadline(time.Time{})
	return nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
