package factory_test

import (
	"context"
	"testing"

	"github.com/ctrlplane/devicetransport/factory"
	"github.com/ctrlplane/devicetransport/manifest"
	"github.com/ctrlplane/devicetransport/ports"
)

type fakeEnumerator struct {
	infos []ports.Info
}

func (f fakeEnumerator) List() ([]ports.Info, error) { return f.infos, nil }

func TestDiscoverReturnsNilWhenDisabled(t *testing.T) {
	f := factory.New(nil, nil)
	out, err := f.Discover(context.Background(), manifest.Discovery{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if out != nil {
		t.Fatalf("expected no candidates when discovery is disabled, got %v", out)
	}
}

func TestDiscoverSerialScanListsEnumeratedPorts(t *testing.T) {
	enum := fakeEnumerator{infos: []ports.Info{
		{Name: "/dev/ttyUSB0", USB: &ports.USB{VendorID: 0x2341}},
		{Name: "/dev/ttyUSB1"},
	}}

	f := factory.New(nil, nil)
	out, err := f.Discover(context.Background(), manifest.Discovery{Enabled: true, SerialScan: true}, enum)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(out))
	}
	if out[0].Vendor != ports.VendorArduino {
		t.Fatalf("expected arduino vendor identification, got %v", out[0].Vendor)
	}
}
