package authclient

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one client counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that stored a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure
	// MetricSignupSuccess counts created accounts.
	MetricSignupSuccess
	// MetricSignupFailure counts rejected signups.
	MetricSignupFailure
	// MetricRefreshCall counts refresh requests actually sent to the API.
	MetricRefreshCall
	// MetricRefreshShared counts callers that joined a refresh already in flight.
	MetricRefreshShared
	// MetricRefreshCoalesced counts refreshes skipped because the token had already been replaced.
	MetricRefreshCoalesced
	// MetricRefreshSuccess counts refreshes that replaced the session.
	MetricRefreshSuccess
	// MetricRefreshUnauthenticated counts refreshes the API rejected with 401.
	MetricRefreshUnauthenticated
	// MetricRefreshTransient counts refreshes that failed for any other reason.
	MetricRefreshTransient
	// MetricRefreshProactive counts refreshes started before the access token expired.
	MetricRefreshProactive
	// MetricRequest counts logical authenticated requests.
	MetricRequest
	// MetricRequestRetry counts resends after a 401.
	MetricRequestRetry
	// MetricSessionExpired counts requests that ended with ErrSessionExpired.
	MetricSessionExpired
	// MetricNoSession counts requests rejected before sending because no session was stored.
	MetricNoSession
	// MetricNetworkFailure counts transport failures of authenticated requests.
	MetricNetworkFailure
	// MetricLogout counts local logouts.
	MetricLogout
	// MetricRequestLatency is the latency histogram of logical authenticated requests.
	MetricRequestLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the first seven histogram
// buckets; the eighth is unbounded.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const (
	histBucketCount = len(latencyBounds) + 1
	cacheLineSize   = 64
)

type latencyHistogram struct {
	buckets  [histBucketCount]uint64
	sumNanos atomic.Int64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the request latency histogram.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
// Histograms hold per-bucket (not cumulative) counts; HistogramSums the total
// observed duration.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns counters configured by cfg. Latency is only recorded when
// both flags are set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id. It is safe for concurrent use and a no-op on a nil or
// disabled receiver.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d. Only MetricRequestLatency has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricRequestLatency {
		return
	}
	atomic.AddUint64(&m.latency.buckets[bucketIndex(d)], 1)
	m.latency.sumNanos.Add(int64(d))
}

// Value returns the current counter value of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram. It
// returns empty maps when metrics are disabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:      map[MetricID]uint64{},
		Histograms:    map[MetricID][]uint64{},
		HistogramSums: map[MetricID]time.Duration{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < MetricRequestLatency; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.latency.buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
		s.HistogramSums[MetricRequestLatency] = time.Duration(m.latency.sumNanos.Load())
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
