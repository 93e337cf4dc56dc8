package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"time"
)

// latencySummary describes one batch of logical requests.
type latencySummary struct {
	elapsed  time.Duration
	ops      int
	failures int64
	mean     time.Duration
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	max      time.Duration
}

func summarize(elapsed time.Duration, samples []time.Duration, failures int64) latencySummary {
	s := latencySummary{elapsed: elapsed, ops: len(samples), failures: failures}
	if len(samples) == 0 {
		return s
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	s.mean = sum / time.Duration(len(sorted))
	s.p50 = nearestRank(sorted, 0.50)
	s.p95 = nearestRank(sorted, 0.95)
	s.p99 = nearestRank(sorted, 0.99)
	s.max = sorted[len(sorted)-1]
	return s
}

// nearestRank expects sorted samples and q in [0, 1].
func nearestRank(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(q * float64(len(sorted))))
	rank = min(max(rank, 1), len(sorted))
	return sorted[rank-1]
}

func (s latencySummary) throughput() float64 {
	if s.elapsed <= 0 {
		return 0
	}
	return float64(s.ops) / s.elapsed.Seconds()
}

func (s latencySummary) write(w io.Writer) {
	fmt.Fprintf(w, "requests: ok=%d failed=%d elapsed=%s rate=%.0f/s\n",
		s.ops, s.failures, s.elapsed.Round(time.Millisecond), s.throughput())
	fmt.Fprintf(w, "latency: mean=%s p50=%s p95=%s p99=%s max=%s\n",
		s.mean.Round(time.Microsecond),
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
		s.max.Round(time.Microsecond),
	)
}
