package mock_test

import (
	"context"
	"testing"
	"time"

	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/transport"
	"github.com/ctrlplane/devicetransport/transport/mock"
)

func newMock(t *testing.T, cfg mock.Config) *mock.Transport {
	t.Helper()
	tcfg := transport.Config{AutoReconnect: false}
	return mock.New("mock0", tcfg, cfg, nil, nil)
}

// S2 — Three-attempt reconnect.
func TestThreeAttemptReconnect(t *testing.T) {
	ctx := context.Background()
	m := newMock(t, mock.Config{ConnectFailures: 2})

	var results []error
	for i := 0; i < 3; i++ {
		err := m.Connect(ctx)
		results = append(results, err)
		if err != nil {
			// retry requires returning to Disconnected, which Connect
			// already leaves a retryable failure in.
		}
	}

	if results[0] == nil || results[1] == nil {
		t.Fatalf("expected first two connects to fail, got %v, %v", results[0], results[1])
	}
	if results[2] != nil {
		t.Fatalf("expected third connect to succeed, got %v", results[2])
	}
	if !m.IsConnected() {
		t.Fatalf("expected connected after third attempt")
	}
}

// S3 — Disconnect-after-ops.
func TestDisconnectAfterOps(t *testing.T) {
	ctx := context.Background()
	n := uint32(3)
	m := newMock(t, mock.Config{DisconnectAfterOps: &n})

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var results []errs.Error
	for i := 0; i < 4; i++ {
		results = append(results, m.Send(ctx, []byte("x")))
	}

	for i := 0; i < 3; i++ {
		if results[i] != nil {
			t.Fatalf("send %d: expected success, got %v", i, results[i])
		}
	}
	if results[3] == nil {
		t.Fatalf("send 4: expected ConnectionFailed")
	}
	if !errs.Is(results[3], errs.KindConnectionFailed) {
		t.Fatalf("send 4: expected KindConnectionFailed, got %v", results[3].Kind())
	}
	if m.IsConnected() {
		t.Fatalf("expected disconnected after the fourth send")
	}
}

// Echo property for MockTransport with default config.
func TestEchoPropertyDefaultConfig(t *testing.T) {
	ctx := context.Background()
	m := newMock(t, mock.Config{})

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := m.Send(ctx, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := m.Receive(ctx, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Receive = %q, want %q", got, "hello")
	}
}

func TestReceiveDataOverridesEcho(t *testing.T) {
	ctx := context.Background()
	m := newMock(t, mock.Config{ReceiveData: []byte("fixed")})

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := m.Send(ctx, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := m.Receive(ctx, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != "fixed" {
		t.Fatalf("Receive = %q, want %q", got, "fixed")
	}
}

func TestGetSentDataTracksHistory(t *testing.T) {
	ctx := context.Background()
	m := newMock(t, mock.Config{})
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_ = m.Send(ctx, []byte("a"))
	_ = m.Send(ctx, []byte("b"))

	got := m.GetSentData()
	if len(got) != 2 || string(got[0]) != "a" || string(got[1]) != "b" {
		t.Fatalf("GetSentData = %v, want [a b]", got)
	}
}
