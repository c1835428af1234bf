package profiler

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestStatsSingleSample(t *testing.T) {
	var s Stats
	s.Update(5 * time.Millisecond)

	if s.Count != 1 || s.Total != 5*time.Millisecond || s.Last != 5*time.Millisecond {
		t.Fatalf("unexpected stats after one sample: %+v", s)
	}
	if s.Min != s.Max || s.Min != 5*time.Millisecond {
		t.Fatalf("min/max = %v/%v, want 5ms", s.Min, s.Max)
	}
	if s.Mean() != 5*time.Millisecond {
		t.Fatalf("mean = %v, want 5ms", s.Mean())
	}
	if s.Std() != 0 || s.Variance() != 0 {
		t.Fatalf("std = %v, want 0 for one sample", s.Std())
	}
}

func TestStatsZeroValue(t *testing.T) {
	var s Stats
	if s.Mean() != 0 || s.Std() != 0 || s.Variance() != 0 {
		t.Fatalf("zero Stats should report zeros, got mean=%v std=%v", s.Mean(), s.Std())
	}
}

func TestStatsMatchesRawSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, n := range []int{1, 2, 3, 10, 100, 1000, 10000} {
		var s Stats
		samples := make([]time.Duration, n)
		for i := range samples {
			samples[i] = time.Duration(rng.Int63n(int64(50*time.Millisecond))) + time.Microsecond
			s.Update(samples[i])
		}

		var total time.Duration
		minD, maxD := samples[0], samples[0]
		for _, d := range samples {
			total += d
			minD = min(minD, d)
			maxD = max(maxD, d)
		}
		mean := float64(total) / float64(n)
		var sq float64
		for _, d := range samples {
			diff := float64(d) - mean
			sq += diff * diff
		}
		std := math.Sqrt(sq / float64(n))

		if s.Count != uint64(n) {
			t.Fatalf("n=%d: count = %d", n, s.Count)
		}
		if s.Total != total {
			t.Fatalf("n=%d: total = %v, want %v", n, s.Total, total)
		}
		if s.Min != minD || s.Max != maxD {
			t.Fatalf("n=%d: min/max = %v/%v, want %v/%v", n, s.Min, s.Max, minD, maxD)
		}
		if !closeTo(s.MeanNanos(), mean, 1e-9) {
			t.Fatalf("n=%d: mean = %f, want %f", n, s.MeanNanos(), mean)
		}
		if got := math.Sqrt(s.Variance()); !closeTo(got, std, 1e-6) {
			t.Fatalf("n=%d: std = %f, want %f", n, got, std)
		}
		if float64(s.Min) > s.MeanNanos() || s.MeanNanos() > float64(s.Max) {
			t.Fatalf("n=%d: mean %f outside [%v, %v]", n, s.MeanNanos(), s.Min, s.Max)
		}
	}
}

func TestStatsConstantSamplesHaveZeroStd(t *testing.T) {
	var s Stats
	for i := 0; i < 1000; i++ {
		s.Update(3 * time.Millisecond)
	}
	if s.Std() != 0 {
		t.Fatalf("std = %v, want 0", s.Std())
	}
	if s.Mean() != 3*time.Millisecond {
		t.Fatalf("mean = %v, want 3ms", s.Mean())
	}
}

func closeTo(got, want, rel float64) bool {
	if want == 0 {
		return math.Abs(got) <= rel
	}
	return math.Abs(got-want)/math.Abs(want) <= rel
}
