/*
 * MIT License
 *
 * Copyright (c) 2024 ctrlplane contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package manifest is the declarative transport catalogue: a
// human-editable TOML file listing known transport entries with priority
// and fallback wiring, loaded via viper and re-serialized with go-toml.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/spf13/viper"
)

// ConnectionDetails is the kind-tagged connection block of one entry. Only
// the fields relevant to Type are populated; it represents what is really
// a sum type as a single flat struct, matching how viper decodes into Go
// structs.
type ConnectionDetails struct {
	Type string `mapstructure:"type" toml:"type"`

	Port       string `mapstructure:"port,omitempty" toml:"port,omitempty"`
	BaudRate   int    `mapstructure:"baud_rate,omitempty" toml:"baud_rate,omitempty"`
	AutoDetect bool   `mapstructure:"auto_detect,omitempty" toml:"auto_detect,omitempty"`

	Host        string `mapstructure:"host,omitempty" toml:"host,omitempty"`
	TcpPort     int    `mapstructure:"port_number,omitempty" toml:"port_number,omitempty"`
	MdnsService string `mapstructure:"mdns_service,omitempty" toml:"mdns_service,omitempty"`

	Broadcast bool `mapstructure:"broadcast,omitempty" toml:"broadcast,omitempty"`
	BindPort  int  `mapstructure:"bind_port,omitempty" toml:"bind_port,omitempty"`

	Username     string `mapstructure:"username,omitempty" toml:"username,omitempty"`
	AuthMethod   string `mapstructure:"auth_method,omitempty" toml:"auth_method,omitempty"`
	AuthPath     string `mapstructure:"auth_path,omitempty" toml:"auth_path,omitempty"`
	AuthPassword string `mapstructure:"auth_password,omitempty" toml:"auth_password,omitempty"`
}

// Performance carries an entry's optional performance requirements.
type Performance struct {
	MaxLatencyMs  int     `mapstructure:"max_latency_ms,omitempty" toml:"max_latency_ms,omitempty"`
	MinThroughput float64 `mapstructure:"min_throughput,omitempty" toml:"min_throughput,omitempty"`
	Reliability   float64 `mapstructure:"reliability,omitempty" toml:"reliability,omitempty"`
}

// Entry is one declared transport in the manifest.
type Entry struct {
	ID            string            `mapstructure:"id" toml:"id"`
	Name          string            `mapstructure:"name" toml:"name"`
	DeviceType    string            `mapstructure:"device_type" toml:"device_type"`
	TransportType string            `mapstructure:"transport_type" toml:"transport_type"`
	Priority      int               `mapstructure:"priority" toml:"priority"`
	Enabled       bool              `mapstructure:"enabled" toml:"enabled"`
	Fallback      string            `mapstructure:"fallback,omitempty" toml:"fallback,omitempty"`
	Capabilities  []string          `mapstructure:"capabilities,omitempty" toml:"capabilities,omitempty"`
	Connection    ConnectionDetails `mapstructure:"connection" toml:"connection"`
	Performance   Performance       `mapstructure:"performance" toml:"performance"`
}

// Discovery toggles the manifest-level discovery behavior.
type Discovery struct {
	Enabled    bool `mapstructure:"enabled" toml:"enabled"`
	SerialScan bool `mapstructure:"serial_scan" toml:"serial_scan"`
	Mdns       bool `mapstructure:"mdns" toml:"mdns"`
	Broadcast  bool `mapstructure:"broadcast" toml:"broadcast"`
	TimeoutMs  int  `mapstructure:"timeout_ms" toml:"timeout_ms"`
}

// Defaults are applied to any entry that doesn't override them.
type Defaults struct {
	MaxReconnectAttempts int  `mapstructure:"max_reconnect_attempts" toml:"max_reconnect_attempts"`
	ReconnectDelayMs     int  `mapstructure:"reconnect_delay_ms" toml:"reconnect_delay_ms"`
	AutoReconnect        bool `mapstructure:"auto_reconnect" toml:"auto_reconnect"`
	ReadTimeoutMs        int  `mapstructure:"read_timeout_ms" toml:"read_timeout_ms"`
}

// Manifest is the parsed, in-memory form of the manifest file.
type Manifest struct {
	Version    string    `mapstructure:"version" toml:"version"`
	Transports []Entry   `mapstructure:"transports" toml:"transports"`
	Discovery  Discovery `mapstructure:"discovery" toml:"discovery"`
	Defaults   Defaults  `mapstructure:"defaults" toml:"defaults"`
}

// Load reads and parses the manifest TOML file at path.
func Load(path string) (*Manifest, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}

	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return &m, nil
}

var validConnectionTypes = map[string]bool{"Serial": true, "Tcp": true, "Udp": true, "Ssh": true}

// Validate checks the structural invariants a hand-edited manifest can
// violate: duplicate ids, a fallback referencing an unknown id, and an
// entry whose connection type isn't one of the four known kinds. This is
// hand-rolled rather than struct-tag validation since the field set is
// small and fixed.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Transports))
	for _, e := range m.Transports {
		if e.ID == "" {
			return fmt.Errorf("entry with empty id")
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate entry id %q", e.ID)
		}
		seen[e.ID] = true
		if !validConnectionTypes[e.Connection.Type] {
			return fmt.Errorf("entry %q: unrecognized connection type %q", e.ID, e.Connection.Type)
		}
	}
	for _, e := range m.Transports {
		if e.Fallback != "" && !seen[e.Fallback] {
			return fmt.Errorf("entry %q: fallback %q does not match any entry id", e.ID, e.Fallback)
		}
	}
	return nil
}

// Save writes m back to path as TOML. Passwords and key passphrases are
// never written back.
func (m *Manifest) Save(path string) error {
	sanitized := *m
	sanitized.Transports = make([]Entry, len(m.Transports))
	for i, e := range m.Transports {
		e.Connection.AuthPassword = ""
		sanitized.Transports[i] = e
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Order(toml.OrderPreserve)
	if err := enc.Encode(sanitized); err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}

	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// EnabledSortedByPriority returns the enabled entries, highest priority
// first, for ConnectBest's walk.
func (m *Manifest) EnabledSortedByPriority() []Entry {
	out := make([]Entry, 0, len(m.Transports))
	for _, e := range m.Transports {
		if e.Enabled {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// ByID looks up an entry by id, used to resolve a fallback reference.
func (m *Manifest) ByID(id string) (Entry, bool) {
	for _, e := range m.Transports {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// ReconnectDelay converts Defaults.ReconnectDelayMs to a time.Duration.
func (d Defaults) ReconnectDelay() time.Duration {
	return time.Duration(d.ReconnectDelayMs) * time.Millisecond
}

// ReadTimeout converts Defaults.ReadTimeoutMs to a time.Duration.
func (d Defaults) ReadTimeout() time.Duration {
	return time.Duration(d.ReadTimeoutMs) * time.Millisecond
}

// Timeout converts Discovery.TimeoutMs to a time.Duration.
func (d Discovery) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}
