package stats_test

import (
	"testing"
	"time"

	"github.com/ctrlplane/devicetransport/stats"
)

func TestRecordSendAndSuccess(t *testing.T) {
	c := stats.New()
	c.RecordSend(5)
	c.RecordSuccess(10)

	snap := c.Snapshot(time.Now())
	if snap.BytesSent != 5 {
		t.Fatalf("BytesSent = %d, want 5", snap.BytesSent)
	}
	if snap.TransactionsSuccess != 1 {
		t.Fatalf("TransactionsSuccess = %d, want 1", snap.TransactionsSuccess)
	}
	if snap.AvgLatencyMs != 10 {
		t.Fatalf("AvgLatencyMs = %v, want 10", snap.AvgLatencyMs)
	}
	if snap.MaxLatencyMs != 10 {
		t.Fatalf("MaxLatencyMs = %v, want 10", snap.MaxLatencyMs)
	}
}

func TestTransactionsSuccessPlusFailedMatchesCalls(t *testing.T) {
	c := stats.New()
	c.RecordSuccess(1)
	c.RecordSuccess(2)
	c.RecordFailure("timeout")

	snap := c.Snapshot(time.Now())
	if got, want := snap.TransactionsSuccess+snap.TransactionsFailed, uint64(3); got != want {
		t.Fatalf("total completed = %d, want %d", got, want)
	}
	if snap.LastError != "timeout" {
		t.Fatalf("LastError = %q, want %q", snap.LastError, "timeout")
	}
}

func TestRecordEnforcementAccumulates(t *testing.T) {
	c := stats.New()
	c.RecordEnforcement(12.5)
	c.RecordEnforcement(7.5)

	snap := c.Snapshot(time.Now())
	if snap.LatencyEnforcements != 2 {
		t.Fatalf("LatencyEnforcements = %d, want 2", snap.LatencyEnforcements)
	}
	if !snap.HasLastEnforcementMs || snap.LastEnforcementMs != 7.5 {
		t.Fatalf("LastEnforcementMs = %v (has=%v), want 7.5", snap.LastEnforcementMs, snap.HasLastEnforcementMs)
	}
	if snap.TotalEnforcementDelayMs != 20 {
		t.Fatalf("TotalEnforcementDelayMs = %v, want 20", snap.TotalEnforcementDelayMs)
	}
}

func TestUptimeAccruesAfterMarkConnected(t *testing.T) {
	c := stats.New()
	c.MarkConnected(time.Now().Add(-5 * time.Second))

	snap := c.Snapshot(time.Now())
	if snap.UptimeSeconds < 4 {
		t.Fatalf("UptimeSeconds = %d, want >= 4", snap.UptimeSeconds)
	}
}
