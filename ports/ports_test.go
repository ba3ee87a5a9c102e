package ports_test

import (
	"testing"

	"github.com/ctrlplane/devicetransport/ports"
)

func TestIdentifyVendorKnownTable(t *testing.T) {
	cases := map[uint16]ports.Vendor{
		0x2341: ports.VendorArduino,
		0x0403: ports.VendorFTDI,
		0x1A86: ports.VendorCH340,
		0x10C4: ports.VendorCP210x,
		0x16C0: ports.VendorTeensy,
		0x0483: ports.VendorSTM32,
	}
	for vid, want := range cases {
		if got := ports.IdentifyVendor(vid); got != want {
			t.Errorf("IdentifyVendor(0x%04X) = %q, want %q", vid, got, want)
		}
	}
}

func TestIdentifyVendorUnknown(t *testing.T) {
	if got := ports.IdentifyVendor(0xFFFF); got != ports.VendorUnknown {
		t.Fatalf("IdentifyVendor(unknown) = %q, want empty", got)
	}
}
