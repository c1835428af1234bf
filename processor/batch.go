package processor

import (
	"context"
	"time"

	"github.com/google/pprof/profile"

	"frameScope/converter"
	"frameScope/report"
)

// processSnapshots collects snapshots into batches and triggers processing when either:
// 1. The batch size limit is reached (config.BatchLimit)
// 2. The time interval has elapsed (config.Interval seconds)
func (p *Processor) processSnapshots(ctx context.Context, snapshots <-chan *report.Snapshot, pprofProfiles chan<- *profile.Profile) error {
	var snapshotsForProcessing []report.Snapshot

	// Create timer for periodic batch processing
	timer := time.NewTimer(p.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap, ok := <-snapshots:
			// Channel closed, process remaining snapshots if any
			if !ok {
				if len(snapshotsForProcessing) > 0 {
					return p.processBatch(ctx, snapshotsForProcessing, pprofProfiles)
				}
				return nil
			}

			for _, o := range p.observers {
				o.Observe(snap)
			}
			snapshotsForProcessing = append(snapshotsForProcessing, converter.Delta(p.previous[snap.Label], snap))
			p.previous[snap.Label] = snap

			// Process batch if size limit reached
			if len(snapshotsForProcessing) >= p.config.BatchLimit {
				if err := p.processBatch(ctx, snapshotsForProcessing, pprofProfiles); err != nil {
					return err
				}
				snapshotsForProcessing = nil
				timer.Reset(p.interval())
			}

		case <-timer.C:
			// Process batch on timer expiration if there are snapshots
			if len(snapshotsForProcessing) > 0 {
				if err := p.processBatch(ctx, snapshotsForProcessing, pprofProfiles); err != nil {
					return err
				}
				snapshotsForProcessing = nil
			}
			timer.Reset(p.interval())
		}
	}
}

// processBatch converts a batch of snapshot deltas into a pprof profile.
// The profile is then sent to the pprofProfiles channel for upload.
// Conversion failures are logged and the batch is dropped.
func (p *Processor) processBatch(ctx context.Context, snapshots []report.Snapshot, pprofProfiles chan<- *profile.Profile) error {
	if p.sender == nil {
		return nil
	}
	prof, err := converter.ConvertSnapshotsToPprof(snapshots, p.exclude, p.log)
	if err != nil {
		p.log.Error().Err(err).Int("snapshots", len(snapshots)).Msg("converting batch")
		return nil
	}
	if prof == nil {
		return nil
	}
	select {
	case pprofProfiles <- prof:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consumer receives converted pprof profiles from the channel and sends them
// to Pyroscope server using the configured sender
func (p *Processor) consumer(ctx context.Context, pprofProfiles <-chan *profile.Profile) {
	for prof := range pprofProfiles {
		err := p.sender.SendSample(ctx, prof, converter.SampleTypeConfig)

		p.mu.Lock()
		if err != nil {
			p.failed++
		} else {
			p.sent++
		}
		p.mu.Unlock()

		if err != nil {
			p.log.Error().Err(err).Msg("sending sample")
		}
	}
}
