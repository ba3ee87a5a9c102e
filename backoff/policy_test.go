package backoff_test

import (
	"testing"
	"time"

	"github.com/ctrlplane/devicetransport/backoff"
)

func TestCanonicalSequence(t *testing.T) {
	cfg := backoff.Config{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2,
		MaxAttempts:  7,
		Jitter:       false,
	}

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
	}

	p := backoff.New(cfg)
	for i, w := range want {
		got, ok := p.NextDelay()
		if !ok {
			t.Fatalf("attempt %d: expected a delay, got exhausted", i+1)
		}
		if got != w {
			t.Fatalf("attempt %d: got %s want %s", i+1, got, w)
		}
	}

	if _, ok := p.NextDelay(); ok {
		t.Fatalf("8th call should be exhausted")
	}
}

func TestResetRestartsSequence(t *testing.T) {
	cfg := backoff.DefaultConfig()
	cfg.MaxAttempts = 2

	p := backoff.New(cfg)
	p.NextDelay()
	p.NextDelay()
	if _, ok := p.NextDelay(); ok {
		t.Fatalf("expected exhaustion before reset")
	}

	p.Reset()
	if _, ok := p.NextDelay(); !ok {
		t.Fatalf("expected a delay after reset")
	}
}

func TestUnlimitedAttempts(t *testing.T) {
	cfg := backoff.DefaultConfig()
	cfg.MaxAttempts = 0

	for n := uint32(1); n <= 50; n++ {
		if d := backoff.NextDelay(n, cfg); d <= 0 {
			t.Fatalf("attempt %d: expected a positive delay", n)
		}
	}
	if !backoff.ShouldRetry(1000, cfg) {
		t.Fatalf("unlimited attempts should always allow retry")
	}
}

func TestJitterStaysWithinBudget(t *testing.T) {
	cfg := backoff.Config{InitialDelay: time.Second, MaxDelay: 30 * time.Second, Factor: 2, Jitter: true}
	for n := uint32(1); n <= 10; n++ {
		d := backoff.NextDelay(n, cfg)
		base := backoff.NextDelay(n, backoff.Config{InitialDelay: cfg.InitialDelay, MaxDelay: cfg.MaxDelay, Factor: cfg.Factor})
		if d < base || d > base+base/4+time.Millisecond {
			t.Fatalf("attempt %d: jittered delay %s out of [%s, %s]", n, d, base, base+base/4)
		}
	}
}
