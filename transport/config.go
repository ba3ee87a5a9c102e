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

package transport

import (
	"time"

	"github.com/ctrlplane/devicetransport/backoff"
	"github.com/ctrlplane/devicetransport/capability"
)

// SerialSettings is the kind-specific configuration for capability.Serial.
type SerialSettings struct {
	Port       string
	BaudRate   int
	DataBits   int
	Parity     string // "N", "E", "O"
	StopBits   int
	FlowControl bool
	AutoDetect bool
}

// TcpSettings is the kind-specific configuration for capability.Tcp.
type TcpSettings struct {
	Host      string
	Port      int
	NoDelay   bool
	KeepAlive time.Duration
}

// UdpSettings is the kind-specific configuration for capability.Udp.
type UdpSettings struct {
	Host            string
	Port            int
	BindPort        int
	Broadcast       bool
	Multicast       bool
	MulticastGroup  string
	MTU             int
	AcceptAnySource bool
	RequireHandshake bool
}

// SshAuthMethod selects how SshSettings authenticates.
type SshAuthMethod string

const (
	SshAuthPassword SshAuthMethod = "Password"
	SshAuthKey      SshAuthMethod = "Key"
	SshAuthAgent    SshAuthMethod = "Agent"
)

// SshSettings is the kind-specific configuration for capability.Ssh.
type SshSettings struct {
	Host           string
	Port           int
	Username       string
	AuthMethod     SshAuthMethod
	Password       string
	KeyPath        string
	KeyPassphrase  string
	KnownHostsPath string
	InsecureIgnoreHostKey bool
}

// Config is the immutable per-instance TransportConfig.
type Config struct {
	Kind    capability.Kind
	Address string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	AutoReconnect      bool
	MaxReconnectAttempts uint32 // 0 = unlimited
	BaseReconnectDelay time.Duration

	ReadBufferSize  int
	WriteBufferSize int

	RequireHandshake bool

	// MinLatencyOverride, if non-zero, replaces the capability-derived
	// floor for this instance.
	MinLatencyOverride time.Duration

	Serial SerialSettings
	Tcp    TcpSettings
	Udp    UdpSettings
	Ssh    SshSettings
}

// Capabilities returns the fixed capability set for cfg.Kind, honoring
// MinLatencyOverride when set.
func (c Config) Capabilities() capability.Capabilities {
	caps := capability.For(c.Kind)
	if c.MinLatencyOverride > 0 {
		caps.MinLatency = c.MinLatencyOverride
	}
	return caps
}

// BackoffConfig derives an ExponentialBackoff value type from the
// reconnect fields of this Config.
func (c Config) BackoffConfig() backoff.Config {
	delay := c.BaseReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	return backoff.Config{
		InitialDelay: delay,
		MaxDelay:     30 * time.Second,
		Factor:       2,
		MaxAttempts:  c.MaxReconnectAttempts,
		Jitter:       false,
	}
}
