package factory_test

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/ctrlplane/devicetransport/factory"
	"github.com/ctrlplane/devicetransport/manifest"
)

func listenLoopback(t *testing.T) (port int, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(portStr)
	return p, func() { ln.Close() }
}

func TestConnectBestPicksHighestPriorityThatConnects(t *testing.T) {
	port, closeFn := listenLoopback(t)
	defer closeFn()

	m := &manifest.Manifest{
		Transports: []manifest.Entry{
			{
				ID: "bad_high_priority", TransportType: "Tcp", Priority: 10, Enabled: true,
				Connection: manifest.ConnectionDetails{Type: "Tcp", Host: "127.0.0.1", TcpPort: 1},
			},
			{
				ID: "good_low_priority", TransportType: "Tcp", Priority: 5, Enabled: true,
				Connection: manifest.ConnectionDetails{Type: "Tcp", Host: "127.0.0.1", TcpPort: port},
			},
		},
	}

	f := factory.New(nil, nil)
	tr, entry, err := f.ConnectBest(context.Background(), m)
	if err != nil {
		t.Fatalf("ConnectBest: %v", err)
	}
	defer tr.CleanupResources()

	if entry.ID != "good_low_priority" {
		t.Fatalf("expected fallback to the reachable entry, got %q", entry.ID)
	}
	if !tr.IsConnected() {
		t.Fatalf("expected the returned transport to be connected")
	}
}

func TestConnectBestFollowsFallbackID(t *testing.T) {
	port, closeFn := listenLoopback(t)
	defer closeFn()

	m := &manifest.Manifest{
		Transports: []manifest.Entry{
			{
				ID: "primary", TransportType: "Tcp", Priority: 10, Enabled: true, Fallback: "secondary",
				Connection: manifest.ConnectionDetails{Type: "Tcp", Host: "127.0.0.1", TcpPort: 1},
			},
			{
				ID: "secondary", TransportType: "Tcp", Priority: 1, Enabled: true,
				Connection: manifest.ConnectionDetails{Type: "Tcp", Host: "127.0.0.1", TcpPort: port},
			},
		},
	}

	f := factory.New(nil, nil)
	tr, entry, err := f.ConnectBest(context.Background(), m)
	if err != nil {
		t.Fatalf("ConnectBest: %v", err)
	}
	defer tr.CleanupResources()

	if entry.ID != "secondary" {
		t.Fatalf("expected to land on the fallback entry, got %q", entry.ID)
	}
}

func TestConnectBestReturnsErrorWhenNothingConnects(t *testing.T) {
	m := &manifest.Manifest{
		Transports: []manifest.Entry{
			{
				ID: "unreachable", TransportType: "Tcp", Priority: 1, Enabled: true,
				Connection: manifest.ConnectionDetails{Type: "Tcp", Host: "127.0.0.1", TcpPort: 1},
			},
		},
	}

	f := factory.New(nil, nil)
	_, _, err := f.ConnectBest(context.Background(), m)
	if err == nil {
		t.Fatalf("expected an error when no entry connects")
	}
}

func TestBuildRejectsUnrecognizedConnectionType(t *testing.T) {
	f := factory.New(nil, nil)
	_, err := f.Build(manifest.Entry{ID: "bogus", Connection: manifest.ConnectionDetails{Type: "Carrier Pigeon"}}, manifest.Defaults{})
	if err == nil {
		t.Fatalf("expected an error for an unrecognized connection type")
	}
}
