package processor

import (
	"context"
	"regexp"
	"sync"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	"frameScope/config"
	"frameScope/report"
)

// Sender uploads converted profiles. *sender.Sender implements it.
type Sender interface {
	SendSample(ctx context.Context, prof *profile.Profile, sampleTypeConfig map[string]map[string]interface{}) error
}

// Observer sees every snapshot as it arrives, before batching.
type Observer interface {
	Observe(snap *report.Snapshot)
}

// Processor turns the snapshots handed off by profiled goroutines into
// batched pprof profiles and sends them.
type Processor struct {
	config    *config.Config
	sender    Sender
	observers []Observer
	exclude   *regexp.Regexp
	log       zerolog.Logger

	previous map[string]*report.Snapshot // last snapshot per label, batcher goroutine only

	mu     sync.Mutex // guards sent and failed, updated by the consumers
	sent   int
	failed int
}
