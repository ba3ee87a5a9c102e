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

// Package backoff implements a pure exponential-backoff policy: a
// function from (attempt, config) to a delay, with no I/O and no shared
// state beyond its own attempt counter.
package backoff

import (
	"math/rand"
	"time"
)

// Config describes an ExponentialBackoff value type.
type Config struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
	MaxAttempts  uint32 // 0 = unlimited
	Jitter       bool
}

// DefaultConfig returns the canonical sequence inputs used when a caller
// doesn't override them.
func DefaultConfig() Config {
	return Config{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2,
		MaxAttempts:  0,
		Jitter:       false,
	}
}

// Policy is a stateful cursor over a Config: it tracks the current attempt
// number so callers don't have to thread it through themselves.
type Policy struct {
	cfg     Config
	current uint32
}

// New returns a Policy bound to cfg, with the attempt counter at zero.
func New(cfg Config) *Policy {
	if cfg.Factor < 1.0 {
		cfg.Factor = 1.0
	}
	return &Policy{cfg: cfg}
}

// Reset zeroes the attempt counter.
func (p *Policy) Reset() {
	p.current = 0
}

// Attempt returns the current (1-indexed once NextDelay has been called at
// least once) attempt number.
func (p *Policy) Attempt() uint32 {
	return p.current
}

// NextDelay advances the attempt counter and returns the delay for it, or
// false once max attempts is exhausted.
func (p *Policy) NextDelay() (time.Duration, bool) {
	if p.cfg.MaxAttempts > 0 && p.current >= p.cfg.MaxAttempts {
		return 0, false
	}
	p.current++
	return NextDelay(p.current, p.cfg), true
}

// NextDelay is the pure function form: delay for the n-th (1-indexed)
// attempt under cfg, with no mutation of any shared state. Returns 0
// once attempt exceeds a non-zero cfg.MaxAttempts.
func NextDelay(attempt uint32, cfg Config) time.Duration {
	if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
		return 0
	}

	base := float64(cfg.InitialDelay) * pow(cfg.Factor, attempt-1)
	if max := float64(cfg.MaxDelay); base > max {
		base = max
	}

	if cfg.Jitter {
		base += base * rand.Float64() * 0.25
	}

	return time.Duration(base)
}

func pow(base float64, exp uint32) float64 {
	result := 1.0
	for i := uint32(0); i < exp; i++ {
		result *= base
	}
	return result
}

// ShouldRetry reports whether attempt (1-indexed, about to be made) is
// still within cfg.MaxAttempts.
func ShouldRetry(attempt uint32, cfg Config) bool {
	return cfg.MaxAttempts == 0 || attempt <= cfg.MaxAttempts
}
