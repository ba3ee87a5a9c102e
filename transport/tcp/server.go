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

package tcp

import (
	"context"
	"fmt"
	"net"

	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/transport"
)

// Server accepts inbound TCP connections and hands each one back as a
// Transport, for the loopback side of an integration test or for a
// device that dials out to us instead of the other way around.
type Server struct {
	ln   net.Listener
	log  logger.Logger
	clk  clock.Clock
	port int
}

// Listen binds 0.0.0.0:port. port 0 picks an ephemeral port; read it
// back with Port.
func Listen(port int, log logger.Logger, clk clock.Clock) (*Server, errs.Error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, errs.Wrap(errs.KindIoError, "tcp listen", err)
	}
	actual := port
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		actual = tcpAddr.Port
	}
	return &Server{ln: ln, log: log, clk: clk, port: actual}, nil
}

// Port returns the bound port, resolved if 0 was requested at Listen.
func (s *Server) Port() int { return s.port }

// Close stops accepting new connections. Transports already handed out
// by Accept are unaffected.
func (s *Server) Close() error { return s.ln.Close() }

// Accept blocks for the next inbound connection and returns it already
// in the Connected state, named after the peer's address.
func (s *Server) Accept(ctx context.Context) (*Transport, errs.Error) {
	conn, err := s.ln.Accept()
	if err != nil {
		return nil, errs.Wrap(errs.KindIoError, "tcp accept", err)
	}

	peer := conn.RemoteAddr().(*net.TCPAddr)
	cfg := transport.Config{
		Tcp: transport.TcpSettings{Host: peer.IP.String(), Port: peer.Port},
	}
	t := newAccepted(fmt.Sprintf("tcp-accepted:%s", peer), cfg, s.log, s.clk, conn)
	if cerr := t.Connect(ctx); cerr != nil {
		conn.Close()
		return nil, cerr
	}
	return t, nil
}
