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

// Package errs provides the closed error taxonomy the transport subsystem
// uses for retry classification: every operation returns an Error carrying
// one of the fourteen Kind values, never a bare error.
package errs

// Kind classifies a transport error. The set is closed and fixed by the
// transport contract: no runtime registration, unlike an open error-code
// registry.
type Kind uint8

const (
	KindConnectionFailed Kind = iota
	KindNotConnected
	KindAlreadyConnected
	KindTimeout
	KindIoError
	KindConfigError
	KindProtocolError
	KindBufferOverflow
	KindInvalidData
	KindNotImplemented
	KindHardwareError
	KindPermissionDenied
	KindResourceUnavailable
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindConnectionFailed:
		return "ConnectionFailed"
	case KindNotConnected:
		return "NotConnected"
	case KindAlreadyConnected:
		return "AlreadyConnected"
	case KindTimeout:
		return "Timeout"
	case KindIoError:
		return "IoError"
	case KindConfigError:
		return "ConfigError"
	case KindProtocolError:
		return "ProtocolError"
	case KindBufferOverflow:
		return "BufferOverflow"
	case KindInvalidData:
		return "InvalidData"
	case KindNotImplemented:
		return "NotImplemented"
	case KindHardwareError:
		return "HardwareError"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindResourceUnavailable:
		return "ResourceUnavailable"
	case KindOther:
		return "Other"
	}

	return "Unknown"
}

// Permanent reports whether the kind must never be retried: config,
// permission, invalid-data, and not-implemented errors can never succeed
// on replay.
func (k Kind) Permanent() bool {
	switch k {
	case KindConfigError, KindPermissionDenied, KindInvalidData, KindNotImplemented:
		return true
	}

	return false
}

// Retryable is the complement of Permanent.
func (k Kind) Retryable() bool {
	return !k.Permanent()
}
