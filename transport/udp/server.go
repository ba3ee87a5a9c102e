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

package udp

import (
	"context"
	"fmt"
	"net"

	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/transport"
)

// Server is one bound UDP socket shared by every peer ReceiveFrom hands
// back, for the loopback side of an integration test or a listener that
// waits for devices to announce themselves first.
type Server struct {
	conn *net.UDPConn
	log  logger.Logger
	clk  clock.Clock
	port int
}

// Listen binds 0.0.0.0:port. port 0 picks an ephemeral port; read it
// back with Port.
func Listen(port int, log logger.Logger, clk clock.Clock) (*Server, errs.Error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, errs.Wrap(errs.KindIoError, "udp listen", err)
	}
	actual := port
	if udpAddr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		actual = udpAddr.Port
	}
	return &Server{conn: conn, log: log, clk: clk, port: actual}, nil
}

// Port returns the bound port, resolved if 0 was requested at Listen.
func (s *Server) Port() int { return s.port }

// Close releases the shared socket. Transports already handed out by
// ReceiveFrom can no longer Send or Receive afterward.
func (s *Server) Close() error { return s.conn.Close() }

// ReceiveFrom blocks for the next datagram and returns its payload plus
// a Transport bound to the sender, sharing this Server's socket.
func (s *Server) ReceiveFrom() ([]byte, *Transport, errs.Error) {
	buf := make([]byte, 65507)
	n, from, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindIoError, "udp receive_from", err)
	}

	cfg := transport.Config{
		Udp: transport.UdpSettings{Host: from.IP.String(), Port: from.Port, AcceptAnySource: true},
	}
	t := newAccepted(fmt.Sprintf("udp-accepted:%s", from), cfg, s.log, s.clk, s.conn, from)
	if cerr := t.Connect(context.Background()); cerr != nil {
		return nil, nil, cerr
	}
	return buf[:n], t, nil
}
