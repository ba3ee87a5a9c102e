package serial

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/errs"
	"github.com/ctrlplane/devicetransport/ports"
	"github.com/ctrlplane/devicetransport/transport"
)

type fakeHandle struct {
	written     bytes.Buffer
	toRead      []byte
	closed      bool
	flushFails  bool
	readTimeout bool
}

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o timeout" }
func (timeoutError) Timeout() bool { return true }

func (f *fakeHandle) Read(p []byte) (int, error) {
	if f.readTimeout {
		return 0, timeoutError{}
	}
	if len(f.toRead) == 0 {
		return 0, timeoutError{}
	}
	n := copy(p, f.toRead)
	f.toRead = f.toRead[n:]
	return n, nil
}

func (f *fakeHandle) Write(p []byte) (int, error) {
	return f.written.Write(p)
}

func (f *fakeHandle) Close() error {
	f.closed = true
	return nil
}

func (f *fakeHandle) Flush() error {
	if f.flushFails {
		return errors.New("flush failed")
	}
	return nil
}

type fakeEnumerator struct {
	infos []ports.Info
	err   error
}

func (f fakeEnumerator) List() ([]ports.Info, error) { return f.infos, f.err }

func newTestTransport(handle *fakeHandle) *Transport {
	cfg := transport.Config{
		ReadBufferSize: 256,
		Serial: transport.SerialSettings{
			Port:     "/dev/ttyFAKE0",
			BaudRate: 9600,
		},
	}
	tr := &Transport{enum: fakeEnumerator{}}
	tr.openFunc = func(transport.SerialSettings) (portHandle, error) { return handle, nil }
	tr.Base = transport.NewBase("serial-test", cfg, nil, clock.Real(), tr.doConnect, tr.doDisconnect)
	return tr
}

func TestSendWritesAndFlushes(t *testing.T) {
	h := &fakeHandle{}
	tr := newTestTransport(h)

	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := tr.Send(ctx, []byte("AT\r\n")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if h.written.String() != "AT\r\n" {
		t.Fatalf("got %q", h.written.String())
	}
}

func TestReceiveTimeoutReturnsEmptyNotError(t *testing.T) {
	h := &fakeHandle{readTimeout: true}
	tr := newTestTransport(h)

	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	out, err := tr.Receive(ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Receive: expected nil error on timeout, got %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty slice, got %v", out)
	}
}

func TestFlushFailureIsConnectionFailed(t *testing.T) {
	h := &fakeHandle{flushFails: true}
	tr := newTestTransport(h)

	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	err := tr.Send(ctx, []byte("x"))
	if err == nil || !errs.Is(err, errs.KindConnectionFailed) {
		t.Fatalf("expected KindConnectionFailed, got %v", err)
	}
}

func TestReceiveEchoesHandleData(t *testing.T) {
	h := &fakeHandle{toRead: []byte("READY")}
	tr := newTestTransport(h)

	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	out, err := tr.Receive(ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(out) != "READY" {
		t.Fatalf("got %q", out)
	}
}

func TestHealthProbeReflectsFlush(t *testing.T) {
	h := &fakeHandle{}
	tr := newTestTransport(h)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !tr.healthProbe() {
		t.Fatalf("expected healthy")
	}
	h.flushFails = true
	if tr.healthProbe() {
		t.Fatalf("expected unhealthy after flush failure")
	}
}
