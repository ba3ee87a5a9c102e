package serial

import (
	"context"
	"testing"
	"time"

	"github.com/ctrlplane/devicetransport/backoff"
	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/ports"
	"github.com/ctrlplane/devicetransport/transport"
)

func newMonitorTestTransport(enum ports.Enumerator, handle *fakeHandle) *Transport {
	cfg := transport.Config{
		BaseReconnectDelay: time.Millisecond,
		Serial:             transport.SerialSettings{Port: "/dev/ttyFAKE0", BaudRate: 9600},
	}
	tr := &Transport{enum: enum}
	tr.openFunc = func(transport.SerialSettings) (portHandle, error) { return handle, nil }
	tr.Base = transport.NewBase("monitor-test", cfg, nil, clock.Real(), tr.doConnect, tr.doDisconnect)
	return tr
}

func TestMonitorConnectsWhenPortAppears(t *testing.T) {
	enum := fakeEnumerator{infos: []ports.Info{{Name: "/dev/ttyFAKE0"}}}
	tr := newMonitorTestTransport(enum, &fakeHandle{})

	st := &monitorState{policy: backoff.New(tr.Config().BackoffConfig())}
	tr.monitorTick(context.Background(), st)

	if !tr.IsConnected() {
		t.Fatalf("expected transport to connect once its port is enumerated")
	}
}

func TestMonitorDisconnectsWhenPortDisappears(t *testing.T) {
	enum := &fakeEnumeratorVar{infos: []ports.Info{{Name: "/dev/ttyFAKE0"}}}
	h := &fakeHandle{}
	tr := newMonitorTestTransport(enum, h)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	enum.infos = nil // simulate unplug
	st := &monitorState{policy: backoff.New(tr.Config().BackoffConfig())}
	tr.monitorTick(context.Background(), st)

	if tr.IsConnected() {
		t.Fatalf("expected transport to disconnect once its port vanishes from enumeration")
	}
	if !h.closed {
		t.Fatalf("expected handle to be closed")
	}
}

func TestMonitorReopensAfterThreeConsecutiveHealthFailures(t *testing.T) {
	enum := fakeEnumerator{infos: []ports.Info{{Name: "/dev/ttyFAKE0"}}}
	h := &fakeHandle{flushFails: true}
	tr := newMonitorTestTransport(enum, h)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	st := &monitorState{policy: backoff.New(tr.Config().BackoffConfig())}
	for i := 0; i < maxConsecutiveHealthFails; i++ {
		tr.monitorTick(context.Background(), st)
	}

	if !h.closed {
		t.Fatalf("expected forced reopen (stale handle closed) after %d consecutive health failures", maxConsecutiveHealthFails)
	}
	if st.consecutiveHealthFails != 0 {
		t.Fatalf("expected failure counter to reset after forced reopen, got %d", st.consecutiveHealthFails)
	}
}

// fakeEnumeratorVar is a pointer-receiver enumerator so a test can mutate
// its result between monitorTick calls.
type fakeEnumeratorVar struct {
	infos []ports.Info
}

func (f *fakeEnumeratorVar) List() ([]ports.Info, error) { return f.infos, nil }
