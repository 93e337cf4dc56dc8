package authclient

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncRespectsEnabled(t *testing.T) {
	for _, tc := range []struct {
		enabled bool
		want    uint64
	}{
		{enabled: true, want: 3},
		{enabled: false, want: 0},
	} {
		m := NewMetrics(MetricsConfig{Enabled: tc.enabled})
		for range 3 {
			m.Inc(MetricRequestRetry)
		}
		if got := m.Value(MetricRequestRetry); got != tc.want {
			t.Fatalf("enabled=%v: expected %d retries, got %d", tc.enabled, tc.want, got)
		}
		if got := m.Value(MetricRequest); got != 0 {
			t.Fatalf("enabled=%v: unrelated counter moved to %d", tc.enabled, got)
		}
	}
}

// Mirrors an expired-token burst: every caller counts a request and a shared
// refresh while one caller counts the network call.
func TestMetricsConcurrentBurst(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const callers = 48
	const rounds = 500

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				m.Inc(MetricRequest)
				m.Inc(MetricRefreshShared)
				if i == 0 {
					m.Inc(MetricRefreshCall)
				}
			}
		}()
	}
	wg.Wait()

	if got, want := m.Value(MetricRequest), uint64(callers*rounds); got != want {
		t.Fatalf("requests: expected %d, got %d", want, got)
	}
	if got, want := m.Value(MetricRefreshShared), uint64(callers*rounds); got != want {
		t.Fatalf("shared refreshes: expected %d, got %d", want, got)
	}
	if got := m.Value(MetricRefreshCall); got != rounds {
		t.Fatalf("refresh calls: expected %d, got %d", rounds, got)
	}
}

func TestMetricsLatencyBucketBoundaries(t *testing.T) {
	tests := []struct {
		d      time.Duration
		bucket int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{5*time.Millisecond + time.Microsecond, 1},
		{25 * time.Millisecond, 2},
		{99 * time.Millisecond, 4},
		{500 * time.Millisecond, 6},
		{700 * time.Millisecond, 7},
		{time.Minute, 7},
	}
	for _, tt := range tests {
		if got := bucketIndex(tt.d); got != tt.bucket {
			t.Errorf("bucketIndex(%s) = %d, want %d", tt.d, got, tt.bucket)
		}
	}
}

func TestMetricsLatencySnapshotTracksSum(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	for _, d := range []time.Duration{3 * time.Millisecond, 40 * time.Millisecond, 2 * time.Second} {
		m.Observe(MetricRequestLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRequestLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	want := []uint64{1, 0, 0, 1, 0, 0, 0, 1}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d expected %d, got %d", i, want[i], buckets[i])
		}
	}
	if got := snap.HistogramSums[MetricRequestLatency]; got != 2043*time.Millisecond {
		t.Fatalf("expected sum 2.043s, got %s", got)
	}
}

func TestMetricsLatencyDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricRequestLatency, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricRequestLatency]; ok {
		t.Fatal("expected no histogram when latency is disabled")
	}
	if len(snap.Counters) == 0 {
		t.Fatal("expected counters to be reported")
	}
}

func TestMetricsSnapshotCoversEveryCounter(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSessionExpired)
	m.Inc(MetricNoSession)
	m.Inc(MetricNoSession)

	snap := m.Snapshot()
	if len(snap.Counters) != int(metricIDCount)-1 {
		t.Fatalf("expected every counter id but the histogram, got %d entries", len(snap.Counters))
	}
	if _, ok := snap.Counters[MetricRequestLatency]; ok {
		t.Fatal("latency must not appear as a counter")
	}
	if snap.Counters[MetricSessionExpired] != 1 || snap.Counters[MetricNoSession] != 2 {
		t.Fatalf("unexpected counters: %v", snap.Counters)
	}
	if snap.Counters[MetricLogout] != 0 {
		t.Fatalf("expected untouched counter at 0, got %d", snap.Counters[MetricLogout])
	}
}

func TestMetricsObserveIgnoresCounterIDs(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Observe(MetricRefreshCall, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricRefreshCall]; ok {
		t.Fatalf("expected no histogram for a counter id")
	}
	for i, v := range snap.Histograms[MetricRequestLatency] {
		if v != 0 {
			t.Fatalf("bucket %d expected 0, got %d", i, v)
		}
	}
}

func TestMetricsNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricRequest)
	m.Observe(MetricRequestLatency, time.Second)

	if m.Enabled() || m.LatencyEnabled() {
		t.Fatalf("nil metrics must report disabled")
	}
	if got := m.Value(MetricRequest); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot")
	}
}
