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

package level

import (
	"math"
	"strings"
)

// Level is a logging severity, ordered from most severe (PanicLevel=0) to
// least severe (TraceLevel=6). NilLevel (7) disables logging entirely.
type Level uint8

const (
	// PanicLevel: String "Critical", Code "Crit".
	PanicLevel Level = iota

	// FatalLevel: the process is about to exit.
	FatalLevel

	// ErrorLevel: an operation failed and returned control to its caller.
	ErrorLevel

	// WarnLevel: degraded but continuing, e.g. a latency budget violation
	// or a reconnect attempt.
	WarnLevel

	// InfoLevel is the default fallback for unparseable input.
	InfoLevel

	// DebugLevel is diagnostic detail for troubleshooting a single
	// transport's behavior.
	DebugLevel

	// TraceLevel is below DebugLevel: per-byte/per-frame wire tracing.
	TraceLevel

	// NilLevel disables logging. Cannot be parsed from string; converts
	// to math.MaxInt32 under Logrus().
	NilLevel
)

// ListLevels returns the lowercase names accepted by Parse, most to
// least severe. NilLevel is intentionally excluded: it is not a
// configurable verbosity, it is "off".
func ListLevels() []string {
	return []string{
		strings.ToLower(PanicLevel.String()),
		strings.ToLower(FatalLevel.String()),
		strings.ToLower(ErrorLevel.String()),
		strings.ToLower(WarnLevel.String()),
		strings.ToLower(InfoLevel.String()),
		strings.ToLower(DebugLevel.String()),
		strings.ToLower(TraceLevel.String()),
	}
}

// Parse is case-insensitive and accepts either the full name or the
// short code (e.g. "Warning" or "Warn"). Unrecognized input, including
// "nil"/"", returns InfoLevel.
func Parse(l string) Level {
	switch {
	case strings.EqualFold(PanicLevel.String(), l), strings.EqualFold(PanicLevel.Code(), l):
		return PanicLevel

	case strings.EqualFold(FatalLevel.String(), l), strings.EqualFold(FatalLevel.Code(), l):
		return FatalLevel

	case strings.EqualFold(ErrorLevel.String(), l), strings.EqualFold(ErrorLevel.Code(), l):
		return ErrorLevel

	case strings.EqualFold(WarnLevel.String(), l), strings.EqualFold(WarnLevel.Code(), l):
		return WarnLevel

	case strings.EqualFold(InfoLevel.String(), l), strings.EqualFold(InfoLevel.Code(), l):
		return InfoLevel

	case strings.EqualFold(DebugLevel.String(), l), strings.EqualFold(DebugLevel.Code(), l):
		return DebugLevel

	case strings.EqualFold(TraceLevel.String(), l), strings.EqualFold(TraceLevel.Code(), l):
		return TraceLevel
	}

	return InfoLevel
}

// ParseFromInt maps 0-7 to their Level; anything else falls back to
// InfoLevel.
func ParseFromInt(i int) Level {
	switch i {
	case PanicLevel.Int():
		return PanicLevel
	case FatalLevel.Int():
		return FatalLevel
	case ErrorLevel.Int():
		return ErrorLevel
	case WarnLevel.Int():
		return WarnLevel
	case InfoLevel.Int():
		return InfoLevel
	case DebugLevel.Int():
		return DebugLevel
	case TraceLevel.Int():
		return TraceLevel
	case NilLevel.Int():
		return NilLevel
	default:
		return InfoLevel
	}
}

// ParseFromUint32 clamps values at or above math.MaxInt before
// delegating to ParseFromInt, so it never wraps on a 32-bit platform.
func ParseFromUint32(i uint32) Level {
	if uint64(i) < uint64(math.MaxInt) {
		return ParseFromInt(int(i))
	}
	return ParseFromInt(math.MaxInt)
}
