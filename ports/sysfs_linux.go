//go:build linux

package ports

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// usbDescriptorFor reads /sys/class/tty/<name>/device/../{idVendor,idProduct,...}
// the same way the wider Go serial ecosystem's enumerators do.
func usbDescriptorFor(name string) *USB {
	base := filepath.Base(name)
	devDir := filepath.Join("/sys/class/tty", base, "device")

	// USB-serial adapters expose their descriptors two directories up from
	// the tty device symlink (.../device/../idVendor); plain serial ports
	// (e.g. platform UARTs) have no such ancestor.
	usbDir, ok := findUSBAncestor(devDir)
	if !ok {
		return nil
	}

	vid, vok := readHex16(filepath.Join(usbDir, "idVendor"))
	pid, pok := readHex16(filepath.Join(usbDir, "idProduct"))
	if !vok || !pok {
		return nil
	}

	return &USB{
		VendorID:     vid,
		ProductID:    pid,
		Manufacturer: readTrimmed(filepath.Join(usbDir, "manufacturer")),
		Product:      readTrimmed(filepath.Join(usbDir, "product")),
		Serial:       readTrimmed(filepath.Join(usbDir, "serial")),
	}
}

func findUSBAncestor(dir string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", false
	}
	for d := resolved; d != "/" && d != "."; d = filepath.Dir(d) {
		if _, err := os.Stat(filepath.Join(d, "idVendor")); err == nil {
			return d, true
		}
	}
	return "", false
}

func readHex16(path string) (uint16, bool) {
	raw := readTrimmed(path)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(raw, "0x"), 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

func readTrimmed(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
