package collector

import (
	"github.com/rs/zerolog"

	"frameScope/config"
	"frameScope/profiler"
	"frameScope/report"
)

// New creates a new Collector buffering up to cfg.QueueSize snapshots
func New(cfg *config.Config, log zerolog.Logger) *Collector {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	return &Collector{
		config:    cfg,
		log:       log.With().Str("component", "collector").Logger(),
		snapshots: make(chan *report.Snapshot, size),
	}
}

// Capture snapshots st and publishes the copy. It must run on the goroutine
// that owns st; the published snapshot may then be read anywhere.
func (c *Collector) Capture(st *profiler.State, label string) bool {
	snap := report.Take(st, label)
	return c.Publish(&snap)
}

// Publish queues a snapshot without blocking. When the queue is full or the
// collector is closed the snapshot is dropped and false is returned, so a slow
// exporter never stalls the profiled loop.
func (c *Collector) Publish(snap *report.Snapshot) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.snapshots <- snap:
		return true
	default:
		n := c.dropped.Add(1)
		c.log.Debug().Str("label", snap.Label).Uint64("dropped", n).Msg("snapshot queue full")
		return false
	}
}

// Snapshots returns the channel that receives published snapshots. It is
// closed by Close.
func (c *Collector) Snapshots() <-chan *report.Snapshot {
	return c.snapshots
}

// Close stops accepting snapshots and closes the channel once.
func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.snapshots)
	if n := c.dropped.Load(); n > 0 {
		c.log.Warn().Uint64("dropped", n).Msg("snapshots dropped while queue was full")
	}
}

// Dropped returns how many snapshots were discarded because the queue was full.
func (c *Collector) Dropped() uint64 {
	return c.dropped.Load()
}
