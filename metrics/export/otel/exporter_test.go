package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/authclient"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot authclient.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() authclient.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := authclient.MetricsSnapshot{
		Counters:   make(map[authclient.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[authclient.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// int64Value returns the data point of the named instrument. With le set, it
// returns the point carrying that bucket attribute.
func int64Value(t *testing.T, rm metricdata.ResourceMetrics, name, le string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			var points []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				points = data.DataPoints
			case metricdata.Gauge[int64]:
				points = data.DataPoints
			default:
				t.Fatalf("unexpected data type %T for %s", m.Data, name)
			}
			for _, p := range points {
				if le == "" {
					return p.Value
				}
				if v, ok := p.Attributes.Value(attribute.Key("le")); ok && v.AsString() == le {
					return p.Value
				}
			}
			t.Fatalf("metric %s has no point with le=%q", name, le)
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("authclient-test")

	src := &fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters: map[authclient.MetricID]uint64{
				authclient.MetricLoginSuccess: 3,
				authclient.MetricRefreshCall:  2,
			},
			Histograms: map[authclient.MetricID][]uint64{
				authclient.MetricRequestLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := FromSource(meter, src)
	if err != nil {
		t.Fatalf("FromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if got := int64Value(t, rm, "authclient_login_success_total", ""); got != 3 {
		t.Fatalf("expected login success 3, got %d", got)
	}
	if got := int64Value(t, rm, "authclient_refresh_call_total", ""); got != 2 {
		t.Fatalf("expected refresh calls 2, got %d", got)
	}
	if got := int64Value(t, rm, "authclient_request_latency_seconds_bucket", "0.025"); got != 3 {
		t.Fatalf("expected cumulative bucket 3, got %d", got)
	}
	if got := int64Value(t, rm, "authclient_request_latency_seconds_bucket", "+Inf"); got != 8 {
		t.Fatalf("expected +Inf bucket 8, got %d", got)
	}
	if got := int64Value(t, rm, "authclient_request_latency_seconds_count", ""); got != 8 {
		t.Fatalf("expected histogram count 8, got %d", got)
	}
	if got := int64Value(t, rm, "authclient_audit_dropped_total", ""); got != 1 {
		t.Fatalf("expected audit dropped 1, got %d", got)
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	_, provider := newTestMeter()
	meter := provider.Meter("authclient-test")

	if _, err := FromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := New(meter, nil); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := FromSource(nil, &fakeSource{}); err == nil {
		t.Fatal("expected error for nil meter")
	}
}

func TestExporterReadsClient(t *testing.T) {
	reader, provider := newTestMeter()

	client, err := authclient.New().WithBaseURL("http://127.0.0.1:1").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer client.Close()

	exp, err := New(provider.Meter("authclient-test"), client)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer exp.Close()

	client.Metrics().Inc(authclient.MetricSessionExpired)
	client.Metrics().Inc(authclient.MetricSessionExpired)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if got := int64Value(t, rm, "authclient_session_expired_total", ""); got != 2 {
		t.Fatalf("expected session expired 2, got %d", got)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("authclient-test")

	src := &fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters: map[authclient.MetricID]uint64{
				authclient.MetricLoginSuccess: 1,
			},
			Histograms: map[authclient.MetricID][]uint64{
				authclient.MetricRequestLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := FromSource(meter, src)
	if err != nil {
		t.Fatalf("FromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[authclient.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
