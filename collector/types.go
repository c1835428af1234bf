package collector

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"frameScope/config"
	"frameScope/report"
)

// Collector hands snapshots from the goroutines that own scope trees to the
// goroutines that batch, convert and export them.
type Collector struct {
	config    *config.Config
	log       zerolog.Logger
	snapshots chan *report.Snapshot
	dropped   atomic.Uint64

	mu     sync.RWMutex
	closed bool
}
