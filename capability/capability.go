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

// Package capability holds the fixed, per-kind property sets: invariants
// of a transport kind, not runtime state.
package capability

import "time"

// Kind tags which transport implementation a Capabilities value describes.
type Kind uint8

const (
	Serial Kind = iota
	Tcp
	Udp
	Ssh
)

func (k Kind) String() string {
	switch k {
	case Serial:
		return "Serial"
	case Tcp:
		return "Tcp"
	case Udp:
		return "Udp"
	case Ssh:
		return "Ssh"
	}
	return "Unknown"
}

// Capabilities is the enforcement floor for a transport kind: every
// send/receive/transact on a transport of this Kind must take at least
// MinLatency wall-clock time.
type Capabilities struct {
	Kind           Kind
	Bidirectional  bool
	Broadcast      bool
	MaxPacketSize  int
	FlowControl    bool
	OutOfBand      bool
	MinLatency     time.Duration
	Encryption     bool
}

// For returns the fixed capability set for a transport kind.
func For(k Kind) Capabilities {
	switch k {
	case Serial:
		return Capabilities{
			Kind:          Serial,
			Bidirectional: true,
			Broadcast:     false,
			MaxPacketSize: 4096,
			FlowControl:   true,
			OutOfBand:     false,
			MinLatency:    50 * time.Millisecond,
			Encryption:    false,
		}
	case Tcp:
		return Capabilities{
			Kind:          Tcp,
			Bidirectional: true,
			Broadcast:     false,
			MaxPacketSize: 65536,
			FlowControl:   true,
			OutOfBand:     false,
			MinLatency:    100 * time.Millisecond,
			Encryption:    false,
		}
	case Udp:
		return Capabilities{
			Kind:          Udp,
			Bidirectional: true,
			Broadcast:     true,
			MaxPacketSize: 65507,
			FlowControl:   false,
			OutOfBand:     false,
			MinLatency:    100 * time.Millisecond,
			Encryption:    false,
		}
	case Ssh:
		return Capabilities{
			Kind:          Ssh,
			Bidirectional: true,
			Broadcast:     false,
			MaxPacketSize: 32768,
			FlowControl:   false,
			OutOfBand:     false,
			MinLatency:    150 * time.Millisecond,
			Encryption:    true,
		}
	}
	return Capabilities{Kind: k}
}
