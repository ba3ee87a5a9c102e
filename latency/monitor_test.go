package latency_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/ctrlplane/devicetransport/clock"
	"github.com/ctrlplane/devicetransport/latency"
	"github.com/ctrlplane/devicetransport/logger"
	"github.com/ctrlplane/devicetransport/logger/level"
)

// recordDurations feeds a monitor a fixed sequence of elapsed times by
// advancing a fake clock between Start and Complete for each one.
func recordDurations(mon *latency.Monitor, fc *clock.Fake, budgetMs float64, durationsMs []float64) {
	for _, d := range durationsMs {
		g := mon.Start("op", budgetMs)
		fc.Advance(time.Duration(d * float64(time.Millisecond)))
		g.Complete()
	}
}

func TestPercentileUpdateScenario(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	mon := latency.New(fc, logger.Discard())

	recordDurations(mon, fc, 50, []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})

	m := mon.Snapshot()
	if m.Count != 10 {
		t.Fatalf("Count = %d, want 10", m.Count)
	}
	if m.MinMs != 10 {
		t.Fatalf("MinMs = %v, want 10", m.MinMs)
	}
	if m.MaxMs != 100 {
		t.Fatalf("MaxMs = %v, want 100", m.MaxMs)
	}
	if m.AvgMs != 55 {
		t.Fatalf("AvgMs = %v, want 55", m.AvgMs)
	}
	if m.P50 != 50 && m.P50 != 60 {
		t.Fatalf("P50 = %v, want 50 or 60", m.P50)
	}
	if m.Violations != 5 {
		t.Fatalf("Violations = %d, want 5", m.Violations)
	}
}

func TestHistogramBucketing(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	mon := latency.New(fc, logger.Discard())

	recordDurations(mon, fc, 0, []float64{5, 15, 2000})

	m := mon.Snapshot()
	if m.Histogram[0] != 1 {
		t.Fatalf("bucket 0 (<10) = %d, want 1", m.Histogram[0])
	}
	if m.Histogram[1] != 1 {
		t.Fatalf("bucket 1 (<25) = %d, want 1", m.Histogram[1])
	}
	if m.Histogram[9] != 1 {
		t.Fatalf("bucket 9 (>1000) = %d, want 1", m.Histogram[9])
	}
}

func TestViolationLogIsBoundedTo100(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	mon := latency.New(fc, logger.Discard())

	durations := make([]float64, 150)
	for i := range durations {
		durations[i] = 100
	}
	recordDurations(mon, fc, 10, durations)

	if got := len(mon.Violations()); got != 100 {
		t.Fatalf("len(Violations()) = %d, want 100", got)
	}
}

func TestHistoryBoundedTo1000Samples(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	mon := latency.New(fc, logger.Discard())

	for i := 0; i < 1500; i++ {
		g := mon.Start("op", 0)
		fc.Advance(time.Millisecond)
		g.Complete()
	}

	m := mon.Snapshot()
	if m.Count != 1500 {
		t.Fatalf("Count should track every record even past history window, got %d", m.Count)
	}
}

type capturingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (c *capturingLogger) Log(lvl level.Level, target, message string, fields logger.Fields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
}

func (c *capturingLogger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// A Guard dropped without Complete or Abandon must still surface a
// diagnostic through its finalizer instead of silently vanishing.
func TestAbandonedGuardLogsViaFinalizer(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	log := &capturingLogger{}
	mon := latency.New(fc, log)

	func() {
		mon.Start("forgotten-op", 0)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for log.count() == 0 && time.Now().Before(deadline) {
		runtime.GC()
		runtime.Gosched()
	}

	if log.count() == 0 {
		t.Fatalf("expected a diagnostic log from the abandoned guard's finalizer")
	}
}

// A Guard that completes normally must not log anything when later
// collected, since its finalizer is cleared on Complete.
func TestCompletedGuardDoesNotLogOnFinalize(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	log := &capturingLogger{}
	mon := latency.New(fc, log)

	func() {
		g := mon.Start("finished-op", 0)
		g.Complete()
	}()

	for i := 0; i < 5; i++ {
		runtime.GC()
		runtime.Gosched()
	}
	time.Sleep(50 * time.Millisecond)

	if log.count() != 0 {
		t.Fatalf("expected no diagnostic log, got %d", log.count())
	}
}
