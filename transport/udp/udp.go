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

// Package udp implements a datagram transport with an optional
// application-level handshake and a broadcast discovery helper.
package udp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/ctrlplane/devicetransport/capability"
	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/transport"
)

var _ transport.Transport = (*Transport)(nil)

// Transport is UdpTransport.
type Transport struct {
	*transport.Base

	mu     sync.Mutex
	conn   *net.UDPConn
	remote *net.UDPAddr
}

// New returns a Transport bound to cfg.Udp.
func New(name string, cfg transport.Config, log logger.Logger, clk clock.Clock) *Transport {
	cfg.Kind = capability.Udp
	t := &Transport{}
	t.Base = transport.NewBase(name, cfg, log, clk, t.doConnect, t.doDisconnect)
	return t
}

// newAccepted wraps a Server's shared listening socket plus one sender's
// address (from ReceiveFrom) in a Transport whose connect step is a
// no-op and whose disconnect leaves the shared socket open for the
// Server's other peers.
func newAccepted(name string, cfg transport.Config, log logger.Logger, clk clock.Clock, conn *net.UDPConn, remote *net.UDPAddr) *Transport {
	cfg.Kind = capability.Udp
	t := &Transport{conn: conn, remote: remote}
	forget := func() errs.Error {
		t.mu.Lock()
		t.conn = nil
		t.mu.Unlock()
		return nil
	}
	t.Base = transport.NewBase(name, cfg, log, clk, func(context.Context) errs.Error { return nil }, forget)
	return t
}

func (t *Transport) doConnect(ctx context.Context) errs.Error {
	cfg := t.Config()

	local := &net.UDPAddr{Port: cfg.Udp.BindPort}
	conn, err := net.ListenUDP("udp4", local)
	if err != nil {
		return errs.Wrap(errs.KindConnectionFailed, "udp bind", err)
	}

	if cfg.Udp.Broadcast {
		if berr := enableBroadcast(conn); berr != nil {
			conn.Close()
			return errs.Wrap(errs.KindConnectionFailed, "udp enable broadcast", berr)
		}
	}

	if cfg.Udp.Multicast && cfg.Udp.MulticastGroup != "" {
		group := net.ParseIP(cfg.Udp.MulticastGroup)
		pc := ipv4.NewPacketConn(conn)
		if ifaces, ierr := net.Interfaces(); ierr == nil {
			for i := range ifaces {
				_ = pc.JoinGroup(&ifaces[i], &net.UDPAddr{IP: group})
			}
		}
	}

	remote, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", cfg.Udp.Host, cfg.Udp.Port))
	if err != nil {
		conn.Close()
		return errs.Wrap(errs.KindConfigError, "udp resolve remote", err)
	}

	if cfg.RequireHandshake {
		timeout := cfg.ConnectTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		if herr := handshake(conn, remote, timeout); herr != nil {
			conn.Close()
			return herr
		}
	}

	t.mu.Lock()
	t.conn = conn
	t.remote = remote
	t.mu.Unlock()
	return nil
}

// enableBroadcast sets SO_BROADCAST on conn's underlying file descriptor.
// Go's net package has no portable API for this socket option; without it,
// a WriteToUDP to a broadcast address fails with EACCES on Linux even
// though the call compiles and type-checks cleanly.
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

func handshake(conn *net.UDPConn, remote *net.UDPAddr, timeout time.Duration) errs.Error {
	if _, err := conn.WriteToUDP([]byte("CONNECT"), remote); err != nil {
		return errs.Wrap(errs.KindConnectionFailed, "udp handshake send", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 64)
	n, from, err := conn.ReadFromUDP(buf)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		return errs.Wrap(errs.KindConnectionFailed, "udp handshake timeout", err)
	}
	if from.IP.String() != remote.IP.String() || string(buf[:n]) != "ACCEPT" {
		return errs.New(errs.KindConnectionFailed, "Invalid handshake response")
	}
	return nil
}

func (t *Transport) doDisconnect() errs.Error {
	t.mu.Lock()
	conn := t.conn
	remote := t.remote
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	if t.Config().RequireHandshake && remote != nil {
		_, _ = conn.WriteToUDP([]byte("DISCONNECT"), remote)
	}

	if err := conn.Close(); err != nil {
		return errs.Wrap(errs.KindIoError, "udp close", err)
	}
	return nil
}

// Send implements transport.Transport. Payloads larger than the
// configured MTU are rejected before touching the socket.
func (t *Transport) Send(ctx context.Context, data []byte) errs.Error {
	cfg := t.Config()
	if cfg.Udp.MTU > 0 && len(data) > cfg.Udp.MTU {
		return errs.Newf(errs.KindConfigError, "payload of %d bytes exceeds MTU %d", len(data), cfg.Udp.MTU)
	}

	_, err := t.RunOperation(ctx, "send", func(ctx context.Context) (int, errs.Error) {
		t.mu.Lock()
		conn, remote := t.conn, t.remote
		t.mu.Unlock()
		if conn == nil {
			return 0, errs.New(errs.KindNotConnected, "udp socket is not open")
		}

		n, werr := conn.WriteToUDP(data, remote)
		if werr != nil {
			return n, errs.Wrap(errs.KindIoError, "udp write", werr)
		}
		return n, nil
	})
	if err == nil {
		t.RecordBytesSent(len(data))
	}
	return err
}

// Receive implements transport.Transport. When accept_any_source is
// false, a datagram from an address other than the stored remote yields
// InvalidData.
func (t *Transport) Receive(ctx context.Context, timeout time.Duration) ([]byte, errs.Error) {
	var buf []byte
	n, err := t.RunOperation(ctx, "receive", func(ctx context.Context) (int, errs.Error) {
		t.mu.Lock()
		conn, remote := t.conn, t.remote
		t.mu.Unlock()
		if conn == nil {
			return 0, errs.New(errs.KindNotConnected, "udp socket is not open")
		}

		size := t.Config().ReadBufferSize
		if size <= 0 {
			size = 65507
		}
		buf = make([]byte, size)

		if timeout > 0 {
			_ = conn.SetReadDeadline(t.Clock().Now().Add(timeout))
		}

		n, from, rerr := conn.ReadFromUDP(buf)
		if rerr != nil {
			if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				return 0, errs.Wrap(errs.KindTimeout, "udp read timeout", rerr)
			}
			return 0, errs.Wrap(errs.KindIoError, "udp read", rerr)
		}

		if !t.Config().Udp.AcceptAnySource && remote != nil && !from.IP.Equal(remote.IP) {
			return 0, errs.Newf(errs.KindInvalidData, "datagram from unexpected source %s", from)
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

// Reset is a no-op for UDP: there is no pending stream state to drain.
func (t *Transport) Reset(ctx context.Context) errs.Error {
	return nil
}

// Discovered is one broadcast-discovery response.
type Discovered struct {
	Addr *net.UDPAddr
	Name string
}

// Discover is a static discovery helper: bind ephemeral, broadcast
// DISCOVER to 255.255.255.255:port, and collect responses until deadline
// elapses.
func Discover(ctx context.Context, port int, deadline time.Duration) ([]Discovered, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := enableBroadcast(conn); err != nil {
		return nil, err
	}

	broadcast := &net.UDPAddr{IP: net.IPv4bcast, Port: port}
	if _, err := conn.WriteToUDP([]byte("DISCOVER"), broadcast); err != nil {
		return nil, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(deadline))

	var out []Discovered
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return out, nil
		default:
		}

		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return out, nil
		}
		out = append(out, Discovered{Addr: from, Name: string(buf[:n])})
	}
}
