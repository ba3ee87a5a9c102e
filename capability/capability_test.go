package capability_test

import (
	"testing"
	"time"

	"github.com/ctrlplane/devicetransport/capability"
)

func TestMinLatencyFloors(t *testing.T) {
	cases := map[capability.Kind]time.Duration{
		capability.Serial: 50 * time.Millisecond,
		capability.Tcp:    100 * time.Millisecond,
		capability.Udp:    100 * time.Millisecond,
		capability.Ssh:    150 * time.Millisecond,
	}
	for k, want := range cases {
		if got := capability.For(k).MinLatency; got != want {
			t.Errorf("%s: MinLatency = %s, want %s", k, got, want)
		}
	}
}

func TestUdpIsBroadcastCapable(t *testing.T) {
	if !capability.For(capability.Udp).Broadcast {
		t.Fatalf("udp must support broadcast")
	}
	if capability.For(capability.Tcp).Broadcast {
		t.Fatalf("tcp must not support broadcast")
	}
}

func TestSshIsEncrypted(t *testing.T) {
	if !capability.For(capability.Ssh).Encryption {
		t.Fatalf("ssh must report encryption")
	}
}
