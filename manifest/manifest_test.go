package manifest_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctrlplane/devicetransport/manifest"
)

const sample = `
version = "1.0"

[[transports]]
id = "arduino_primary"
name = "Arduino Uno (Primary)"
device_type = "arduino_uno"
transport_type = "Serial"
priority = 10
enabled = true
fallback = "esp32_wifi"
capabilities = ["digital_io", "pwm", "imu"]

[transports.connection]
type = "Serial"
port = "COM3"
baud_rate = 115200
auto_detect = true

[transports.performance]
max_latency_ms = 50
reliability = 0.99

[[transports]]
id = "esp32_wifi"
name = "ESP32 (WiFi fallback)"
device_type = "esp32"
transport_type = "Tcp"
priority = 5
enabled = true

[transports.connection]
type = "Tcp"
host = "192.168.1.50"

[discovery]
enabled = true
serial_scan = true
mdns = true
timeout_ms = 5000

[defaults]
max_reconnect_attempts = 3
reconnect_delay_ms = 1000
auto_reconnect = true
read_timeout_ms = 1000
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.toml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestLoadParsesEntriesAndDefaults(t *testing.T) {
	path := writeSample(t)
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(m.Transports) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m.Transports))
	}
	if m.Defaults.MaxReconnectAttempts != 3 {
		t.Fatalf("defaults not parsed: %+v", m.Defaults)
	}
	if !m.Discovery.Mdns {
		t.Fatalf("discovery not parsed: %+v", m.Discovery)
	}
}

func TestEnabledSortedByPriorityDescending(t *testing.T) {
	path := writeSample(t)
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	sorted := m.EnabledSortedByPriority()
	if len(sorted) != 2 || sorted[0].ID != "arduino_primary" {
		t.Fatalf("expected arduino_primary first, got %+v", sorted)
	}
}

func TestByIDResolvesFallback(t *testing.T) {
	path := writeSample(t)
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	primary, ok := m.ByID("arduino_primary")
	if !ok {
		t.Fatalf("expected to find arduino_primary")
	}
	fallback, ok := m.ByID(primary.Fallback)
	if !ok || fallback.ID != "esp32_wifi" {
		t.Fatalf("expected fallback esp32_wifi, got %+v ok=%v", fallback, ok)
	}
}

func TestLoadRejectsDanglingFallback(t *testing.T) {
	bad := strings.Replace(sample, `fallback = "esp32_wifi"`, `fallback = "no_such_entry"`, 1)
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.toml")
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := manifest.Load(path); err == nil {
		t.Fatalf("expected Load to reject a dangling fallback reference")
	}
}

func TestLoadRejectsDuplicateID(t *testing.T) {
	bad := strings.Replace(sample, `id = "esp32_wifi"`, `id = "arduino_primary"`, 1)
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.toml")
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := manifest.Load(path); err == nil {
		t.Fatalf("expected Load to reject a duplicate entry id")
	}
}

func TestSaveStripsPasswords(t *testing.T) {
	path := writeSample(t)
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	m.Transports[1].Connection.AuthPassword = "super-secret"

	outPath := filepath.Join(t.TempDir(), "out.toml")
	if err := m.Save(outPath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read saved manifest: %v", err)
	}
	if strings.Contains(string(data), "super-secret") {
		t.Fatalf("expected password to be stripped from saved manifest")
	}
}
