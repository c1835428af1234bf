package collector

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"frameScope/config"
	"frameScope/profiler"
	"frameScope/report"
)

func TestCaptureHandsSnapshotToAnotherGoroutine(t *testing.T) {
	cfg := config.NewDefault()
	c := New(cfg, zerolog.Nop())

	clk := profiler.NewManualClock(time.Unix(0, 0))
	st := profiler.NewState(profiler.WithClock(clk))
	g, _ := st.Enter("frame")
	clk.Advance(time.Millisecond)
	_ = g.End()

	received := make(chan *report.Snapshot, 1)
	go func() {
		for snap := range c.Snapshots() {
			received <- snap
		}
		close(received)
	}()

	if !c.Capture(st, "main") {
		t.Fatalf("Capture dropped the snapshot")
	}

	// mutate the tree after capture; the snapshot must not change
	g, _ = st.Enter("frame")
	clk.Advance(time.Millisecond)
	_ = g.End()

	select {
	case snap := <-received:
		if snap.Label != "main" || len(snap.Metrics) != 1 || snap.Metrics[0].Count != 1 {
			t.Fatalf("snapshot = %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("snapshot not delivered")
	}

	c.Close()
	if _, ok := <-received; ok {
		t.Fatalf("channel not closed")
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	cfg := config.NewDefault()
	cfg.QueueSize = 2
	c := New(cfg, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if !c.Publish(&report.Snapshot{Label: "x"}) {
			t.Fatalf("publish %d dropped", i)
		}
	}
	if c.Publish(&report.Snapshot{Label: "x"}) {
		t.Fatalf("publish into full queue succeeded")
	}
	if c.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", c.Dropped())
	}

	c.Close()
	c.Close()
	if c.Publish(&report.Snapshot{}) {
		t.Fatalf("publish after close succeeded")
	}
}
