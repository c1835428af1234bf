package processor

import (
	"context"
	"time"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"frameScope/config"
	"frameScope/report"
)

// New creates a new Processor. A nil sender keeps the pipeline local: snapshots
// still reach the observers but nothing is uploaded.
func New(cfg *config.Config, s Sender, log zerolog.Logger, observers ...Observer) *Processor {
	return &Processor{
		config:    cfg,
		sender:    s,
		observers: observers,
		exclude:   cfg.ExcludeRegexp(),
		log:       log.With().Str("component", "processor").Logger(),
		previous:  make(map[string]*report.Snapshot),
	}
}

// Process starts the processing pipeline:
// 1. Receives snapshots handed off by profiled goroutines
// 2. Passes them to the observers and collects interval deltas into batches
// 3. Converts each batch to pprof format
// 4. Sends profiles to Pyroscope with up to ConcurrentLimit requests in flight
//
// It returns nil once snapshots is closed and everything pending was sent, or
// the context error if ctx ends first.
func (p *Processor) Process(ctx context.Context, snapshots <-chan *report.Snapshot) error {
	g, ctx := errgroup.WithContext(ctx)
	pprofProfiles := make(chan *profile.Profile, p.config.ConcurrentLimit)

	g.Go(func() error {
		defer close(pprofProfiles)
		return p.processSnapshots(ctx, snapshots, pprofProfiles)
	})

	for i := 0; i < p.config.ConcurrentLimit; i++ {
		g.Go(func() error {
			p.consumer(ctx, pprofProfiles)
			return nil
		})
	}

	return g.Wait()
}

// Stats returns how many profiles were sent and how many sends failed.
func (p *Processor) Stats() (sent, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent, p.failed
}

func (p *Processor) interval() time.Duration {
	return time.Duration(p.config.Interval * float64(time.Second))
}
