package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	"frameScope/config"
	"frameScope/profiler"
	"frameScope/report"
)

type fakeSender struct {
	mu       sync.Mutex
	profiles []*profile.Profile
	err      error
	sent     chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan struct{}, 64)}
}

func (f *fakeSender) SendSample(_ context.Context, prof *profile.Profile, _ map[string]map[string]interface{}) error {
	f.mu.Lock()
	f.profiles = append(f.profiles, prof)
	f.mu.Unlock()
	f.sent <- struct{}{}
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.profiles)
}

type recordingObserver struct {
	mu     sync.Mutex
	labels []string
}

func (r *recordingObserver) Observe(snap *report.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, snap.Label)
}

// snapshots runs n frames per snapshot and returns the running snapshots.
func snapshots(t *testing.T, label string, n, frames int) []*report.Snapshot {
	t.Helper()
	clk := profiler.NewManualClock(time.Unix(100, 0))
	st := profiler.NewState(profiler.WithClock(clk))
	out := make([]*report.Snapshot, 0, n)
	for i := 0; i < n; i++ {
		for f := 0; f < frames; f++ {
			err := st.Do("frame", func() error {
				return st.Do("render", func() error {
					clk.Advance(5 * time.Millisecond)
					return nil
				})
			})
			if err != nil {
				t.Fatalf("frame: %v", err)
			}
		}
		snap := report.Take(st, label)
		out = append(out, &snap)
	}
	return out
}

func feed(snaps []*report.Snapshot) <-chan *report.Snapshot {
	ch := make(chan *report.Snapshot, len(snaps))
	for _, s := range snaps {
		ch <- s
	}
	close(ch)
	return ch
}

func testConfig() *config.Config {
	cfg := config.NewDefault()
	cfg.Interval = 3600
	cfg.BatchLimit = 2
	return cfg
}

func TestProcessFlushesOnBatchLimit(t *testing.T) {
	s := newFakeSender()
	p := New(testConfig(), s, zerolog.Nop())

	if err := p.Process(context.Background(), feed(snapshots(t, "main", 5, 3))); err != nil {
		t.Fatalf("Process: %v", err)
	}
	// two full batches plus the remainder drained on close
	if got := s.count(); got != 3 {
		t.Fatalf("profiles sent = %d, want 3", got)
	}
	if sent, failed := p.Stats(); sent != 3 || failed != 0 {
		t.Fatalf("stats = %d/%d", sent, failed)
	}
}

func TestProcessBatchesHoldBatchLimitSnapshots(t *testing.T) {
	s := newFakeSender()
	p := New(testConfig(), s, zerolog.Nop())

	if err := p.Process(context.Background(), feed(snapshots(t, "main", 5, 3))); err != nil {
		t.Fatalf("Process: %v", err)
	}
	// each snapshot reports frame and frame/render
	want := []int{4, 4, 2}
	if len(s.profiles) != len(want) {
		t.Fatalf("profiles sent = %d, want %d", len(s.profiles), len(want))
	}
	for i, prof := range s.profiles {
		if len(prof.Sample) != want[i] {
			t.Fatalf("profile %d: %d samples, want %d", i, len(prof.Sample), want[i])
		}
	}
}

func TestProcessSendsDeltas(t *testing.T) {
	s := newFakeSender()
	cfg := testConfig()
	cfg.BatchLimit = 1
	p := New(cfg, s, zerolog.Nop())

	if err := p.Process(context.Background(), feed(snapshots(t, "main", 3, 4))); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if s.count() != 3 {
		t.Fatalf("profiles sent = %d, want 3", s.count())
	}
	for i, prof := range s.profiles {
		for _, sample := range prof.Sample {
			if sample.Value[1] != 4 {
				t.Fatalf("profile %d: calls = %d, want 4 per interval", i, sample.Value[1])
			}
		}
	}
}

func TestProcessFlushesOnInterval(t *testing.T) {
	s := newFakeSender()
	cfg := testConfig()
	cfg.Interval = 0.02
	cfg.BatchLimit = 1000
	p := New(cfg, s, zerolog.Nop())

	ch := make(chan *report.Snapshot, 1)
	ch <- snapshots(t, "main", 1, 2)[0]

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Process(ctx, ch) }()

	select {
	case <-s.sent:
	case <-time.After(5 * time.Second):
		t.Fatalf("interval flush did not happen")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Process after cancel = %v", err)
	}
}

func TestProcessNotifiesObservers(t *testing.T) {
	obs := &recordingObserver{}
	p := New(testConfig(), nil, zerolog.Nop(), obs)

	snaps := append(snapshots(t, "main", 2, 1), snapshots(t, "worker", 1, 1)...)
	if err := p.Process(context.Background(), feed(snaps)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := []string{"main", "main", "worker"}
	if len(obs.labels) != len(want) {
		t.Fatalf("observed %v, want %v", obs.labels, want)
	}
	for i := range want {
		if obs.labels[i] != want[i] {
			t.Fatalf("observed %v, want %v", obs.labels, want)
		}
	}
}

func TestProcessContinuesAfterSendFailure(t *testing.T) {
	s := newFakeSender()
	s.err = errors.New("connection refused")
	p := New(testConfig(), s, zerolog.Nop())

	if err := p.Process(context.Background(), feed(snapshots(t, "main", 4, 1))); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sent, failed := p.Stats(); sent != 0 || failed != 2 {
		t.Fatalf("stats = %d/%d, want 0/2", sent, failed)
	}
}
