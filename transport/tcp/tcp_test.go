package tcp_test

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/transport"
	"github.com/ctrlplane/devicetransport/transport/tcp"
)

func loopbackEcho(t *testing.T) (host string, port int, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if n > 0 {
						_, _ = c.Write(buf[:n])
					}
					if err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(portStr)

	return host, p, func() {
		close(done)
		ln.Close()
	}
}

func newTransport(t *testing.T, host string, port int) *tcp.Transport {
	t.Helper()
	cfg := transport.Config{
		ConnectTimeout: time.Second,
		ReadBufferSize: 4096,
		Tcp: transport.TcpSettings{
			Host:    host,
			Port:    port,
			NoDelay: true,
		},
	}
	return tcp.New("tcp-test", cfg, nil, nil)
}

func TestConnectSendReceiveEcho(t *testing.T) {
	host, port, stop := loopbackEcho(t)
	defer stop()

	ctx := context.Background()
	tr := newTransport(t, host, port)

	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect(ctx)

	if err := tr.Send(ctx, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := tr.Receive(ctx, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestReceiveTimesOutWithoutData(t *testing.T) {
	host, port, stop := loopbackEcho(t)
	defer stop()

	ctx := context.Background()
	tr := newTransport(t, host, port)
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect(ctx)

	_, err := tr.Receive(ctx, 50*time.Millisecond)
	if err == nil || !errs.Is(err, errs.KindTimeout) {
		t.Fatalf("expected KindTimeout, got %v", err)
	}
}

func TestPeerCloseIsConnectionFailed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	ctx := context.Background()
	tr := newTransport(t, host, port)
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	_, err = tr.Receive(ctx, time.Second)
	if err == nil || !errs.Is(err, errs.KindConnectionFailed) {
		t.Fatalf("expected KindConnectionFailed, got %v", err)
	}
	if tr.IsConnected() {
		t.Fatalf("expected transport to transition to disconnected")
	}
}

func TestServerAcceptExchangesDataWithClient(t *testing.T) {
	srv, err := tcp.Listen(0, nil, nil)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()

	ctx := context.Background()
	accepted := make(chan *tcp.Transport, 1)
	go func() {
		st, err := srv.Accept(ctx)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		accepted <- st
	}()

	client := newTransport(t, "127.0.0.1", srv.Port())
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("client Connect: %v", err)
	}
	defer client.Disconnect(ctx)

	serverSide := <-accepted
	defer serverSide.Disconnect(ctx)

	if !serverSide.IsConnected() {
		t.Fatalf("expected server-side transport to be connected")
	}

	if err := client.Send(ctx, []byte("hello tcp")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := serverSide.Receive(ctx, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != "hello tcp" {
		t.Fatalf("got %q, want %q", got, "hello tcp")
	}
}

func TestConnectRefusedIsConnectionFailed(t *testing.T) {
	ctx := context.Background()
	tr := newTransport(t, "127.0.0.1", 1) // port 1 is reserved, connection refused

	err := tr.Connect(ctx)
	if err == nil || !errs.Is(err, errs.KindConnectionFailed) {
		t.Fatalf("expected KindConnectionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "tcp dial") {
		t.Fatalf("expected dial context in error, got %v", err)
	}
}
