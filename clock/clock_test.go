package clock_test

import (
	"testing"
	"time"

	"github.com/ctrlplane/devicetransport/clock"
)

func TestRealNowAdvances(t *testing.T) {
	c := clock.Real()
	t1 := c.Now()
	time.Sleep(time.Millisecond)
	t2 := c.Now()
	if !t2.After(t1) {
		t.Fatalf("expected time to advance")
	}
}

func TestFakeAdvanceFiresAfter(t *testing.T) {
	start := time.Unix(0, 0)
	f := clock.NewFake(start)

	fired := make(chan time.Time, 1)
	after := f.After(5 * time.Second)
	go func() {
		fired <- <-after
	}()

	f.Advance(2 * time.Second)
	select {
	case <-fired:
		t.Fatalf("fired too early")
	case <-time.After(20 * time.Millisecond):
	}

	f.Advance(3 * time.Second)
	select {
	case got := <-fired:
		if !got.Equal(start.Add(5 * time.Second)) {
			t.Fatalf("fired at %v, want %v", got, start.Add(5*time.Second))
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for fake clock to fire")
	}
}

func TestFakeNowReflectsAdvance(t *testing.T) {
	f := clock.NewFake(time.Unix(100, 0))
	f.Advance(10 * time.Second)
	if got := f.Now(); !got.Equal(time.Unix(110, 0)) {
		t.Fatalf("Now() = %v, want %v", got, time.Unix(110, 0))
	}
}
