package profiler

import (
	"math"
	"time"
)

// Stats accumulates timing samples for one scope node in constant memory.
// Mean and variance follow Welford's online recurrence.
type Stats struct {
	Count uint64        // Number of completed invocations
	Total time.Duration // Sum of all samples
	Last  time.Duration // Most recent sample
	Min   time.Duration // Smallest sample
	Max   time.Duration // Largest sample

	mean float64 // running mean in nanoseconds
	m2   float64 // sum of squared deviations from the mean
}

// Update feeds one duration sample into the accumulator.
func (s *Stats) Update(d time.Duration) {
	s.Count++
	s.Total += d
	s.Last = d
	if s.Count == 1 || d < s.Min {
		s.Min = d
	}
	if s.Count == 1 || d > s.Max {
		s.Max = d
	}

	x := float64(d)
	delta := x - s.mean
	s.mean += delta / float64(s.Count)
	s.m2 += delta * (x - s.mean)
	if s.m2 < 0 {
		s.m2 = 0
	}
}

// MeanNanos returns the running mean in nanoseconds without rounding.
func (s *Stats) MeanNanos() float64 {
	return s.mean
}

// Mean returns the running mean rounded to the nearest nanosecond.
func (s *Stats) Mean() time.Duration {
	return time.Duration(math.Round(s.mean))
}

// Variance returns the population variance in squared nanoseconds.
func (s *Stats) Variance() float64 {
	if s.Count <= 1 {
		return 0
	}
	return s.m2 / float64(s.Count)
}

// Std returns the population standard deviation, 0 for fewer than two samples.
func (s *Stats) Std() time.Duration {
	return time.Duration(math.Round(math.Sqrt(s.Variance())))
}
