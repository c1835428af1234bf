package converter

import (
	"fmt"
	"regexp"
	"time"

	"fortio.org/safecast"
	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	"frameScope/report"
)

// ConvertSnapshotsToPprof converts scope tree snapshots to pprof format.
// Parameters:
//   - snaps: Snapshots to convert, usually interval deltas
//   - exclude: Scope paths matching it are left out, may be nil
//   - log: Receives batch statistics at debug level
//
// Every reported node becomes one sample whose stack is its scope path and
// whose values are self time and call count. Returns nil when nothing remains.
func ConvertSnapshotsToPprof(snaps []report.Snapshot, exclude *regexp.Regexp, log zerolog.Logger) (*profile.Profile, error) {
	if len(snaps) == 0 {
		return nil, nil
	}

	// The batch window spans every snapshot's interval, which ends at Taken
	// and lasts Base.
	firstSnapshotTime, lastSnapshotTime := batchWindow(snaps)
	actualDuration := lastSnapshotTime.Sub(firstSnapshotTime)

	log.Debug().
		Str("start", firstSnapshotTime.Format(time.RFC3339Nano)).
		Str("end", lastSnapshotTime.Format(time.RFC3339Nano)).
		Dur("duration", actualDuration).
		Int("snapshots", len(snaps)).
		Msg("batch stats")

	// Initialize the pprof profile with metadata
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "wall", Unit: "nanoseconds"},
			{Type: "calls", Unit: "count"},
		},
		TimeNanos:     firstSnapshotTime.UnixNano(),
		DurationNanos: actualDuration.Nanoseconds(),
		PeriodType: &profile.ValueType{
			Type: "wall",
			Unit: "nanoseconds",
		},
		Period: 1,
	}

	// Functions and locations are shared by every sample naming the same scope
	locations := make(map[string]*profile.Location)
	nextFuncID := uint64(1)
	nextLocID := uint64(1)

	locationFor := func(name string) *profile.Location {
		if loc, ok := locations[name]; ok {
			return loc
		}
		fn := &profile.Function{
			ID:         nextFuncID,
			Name:       name,
			SystemName: name,
		}
		prof.Function = append(prof.Function, fn)
		nextFuncID++

		loc := &profile.Location{
			ID:   nextLocID,
			Line: []profile.Line{{Function: fn}},
		}
		locations[name] = loc
		prof.Location = append(prof.Location, loc)
		nextLocID++
		return loc
	}

	for _, snap := range snaps {
		var stack []string
		for _, m := range snap.Metrics {
			if m.Depth > len(stack) {
				return nil, fmt.Errorf("snapshot %q: node %q at depth %d follows depth %d", snap.Label, m.Path, m.Depth, len(stack)-1)
			}
			stack = append(stack[:m.Depth], m.Name)

			if exclude != nil && exclude.MatchString(m.Path) {
				continue
			}
			calls, err := safecast.Conv[int64](m.Count)
			if err != nil {
				return nil, fmt.Errorf("scope %q call count: %w", m.Path, err)
			}
			self := m.Self.Nanoseconds()
			if calls == 0 && self == 0 {
				continue
			}

			// pprof stacks are leaf first
			sampleLocations := make([]*profile.Location, 0, len(stack))
			for i := len(stack) - 1; i >= 0; i-- {
				sampleLocations = append(sampleLocations, locationFor(stack[i]))
			}

			sample := &profile.Sample{
				Location: sampleLocations,
				Value:    []int64{self, calls},
			}
			if snap.Label != "" {
				sample.Label = map[string][]string{"scope_set": {snap.Label}}
			}
			prof.Sample = append(prof.Sample, sample)
		}
	}

	if len(prof.Sample) == 0 {
		return nil, nil
	}
	return prof, nil
}

// batchWindow returns the earliest interval start and the latest capture time.
// Snapshots of different labels overlap instead of adding up.
func batchWindow(snaps []report.Snapshot) (start, end time.Time) {
	for i, snap := range snaps {
		from := snap.Taken.Add(-max(snap.Base, 0))
		if i == 0 || from.Before(start) {
			start = from
		}
		if i == 0 || snap.Taken.After(end) {
			end = snap.Taken
		}
	}
	return start, end
}
