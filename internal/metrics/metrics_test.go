package metrics

import (
	"strings"
	"sync"
	"testing"
)

func TestNilCollectorIsNoOp(t *testing.T) {
	var c *Collector
	c.SessionOpened()
	c.SessionClosed()
	c.BytesReceived(100)
	c.ChunkRetransmitted()
	c.RecordError("x")
	if c.ActiveSessions() != 0 || c.ErrorCount() != 0 {
		t.Error("nil collector returned non-zero counts")
	}
	if s := c.Snapshot(); s.SessionsTotal != 0 {
		t.Error("nil snapshot not empty")
	}
}

func TestConcurrentCounters(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SessionOpened()
			c.BytesReceived(10)
			c.BytesSent(5)
			c.ChunkRetransmitted()
			c.SessionClosed()
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.SessionsTotal != 50 {
		t.Errorf("sessions_total = %d, want 50", s.SessionsTotal)
	}
	if s.SessionsActive != 0 {
		t.Errorf("sessions_active = %d, want 0", s.SessionsActive)
	}
	if s.BytesIn != 500 || s.BytesOut != 250 {
		t.Errorf("bytes = %d/%d, want 500/250", s.BytesIn, s.BytesOut)
	}
	if s.Retransmissions != 50 {
		t.Errorf("retransmissions = %d, want 50", s.Retransmissions)
	}
}

func TestSnapshotJSON(t *testing.T) {
	c := New()
	c.RecordError("disk on fire")
	out := c.JSON()
	if !strings.Contains(out, "disk on fire") {
		t.Errorf("JSON missing last error: %s", out)
	}
	if !strings.Contains(out, "sessions_active") {
		t.Errorf("JSON missing fields: %s", out)
	}
}
