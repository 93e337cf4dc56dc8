package prometheus

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// Source is what the exporter reads. *authclient.Client satisfies it.
type Source interface {
	MetricsSnapshot() authclient.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter publishes client metrics in Prometheus format.
type Exporter struct {
	src Source
}

// New returns an Exporter reading from client.
func New(client *authclient.Client) *Exporter {
	return &Exporter{src: client}
}

// FromSource returns an Exporter reading from any Source.
func FromSource(src Source) *Exporter {
	return &Exporter{src: src}
}

// Handler serves Render. Mount it on the caller's mux.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render returns the text exposition of the current snapshot, or "" when metrics
// are disabled and no audit event was dropped.
func (e *Exporter) Render() string {
	if e == nil || e.src == nil {
		return ""
	}
	snap := e.src.MetricsSnapshot()
	dropped := e.src.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var tw textWriter
	for _, def := range internaldefs.CounterDefs {
		tw.counter(def.Name, def.Help, snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		tw.histogram(def.Name, def.Help, cumulative(snap.Histograms[def.ID]), snap.HistogramSums[def.ID].Seconds())
	}
	tw.counter(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, dropped)
	return tw.String()
}

// Collector exposes the same snapshot to an existing prometheus registry.
func (e *Exporter) Collector() prometheus.Collector {
	c := &collector{
		src:     e.src,
		dropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, prometheus.NewDesc(def.Name, def.Help, nil, nil))
	}
	for _, def := range internaldefs.HistogramDefs {
		c.latency = append(c.latency, prometheus.NewDesc(def.Name, def.Help, nil, nil))
	}
	return c
}

type collector struct {
	src      Source
	counters []*prometheus.Desc
	latency  []*prometheus.Desc
	dropped  *prometheus.Desc
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range append(append(c.counters, c.latency...), c.dropped) {
		ch <- d
	}
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	if c.src == nil {
		return
	}
	snap := c.src.MetricsSnapshot()

	// An empty counter map means metrics are disabled.
	if len(snap.Counters) > 0 {
		for i, def := range internaldefs.CounterDefs {
			ch <- prometheus.MustNewConstMetric(c.counters[i], prometheus.CounterValue, float64(snap.Counters[def.ID]))
		}
	}

	for i, def := range internaldefs.HistogramDefs {
		raw, ok := snap.Histograms[def.ID]
		if !ok {
			continue
		}
		cum := cumulative(raw)
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cum[j]
		}
		ch <- prometheus.MustNewConstHistogram(c.latency[i], cum[len(cum)-1], snap.HistogramSums[def.ID].Seconds(), buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.src.AuditDropped()))
}

func cumulative(raw []uint64) [8]uint64 {
	return internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
}

// textWriter emits the Prometheus text format, version 0.0.4.
type textWriter struct {
	bytes.Buffer
}

func (w *textWriter) header(name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, helpEscaper.Replace(help), name, kind)
}

func (w *textWriter) counter(name, help string, v uint64) {
	w.header(name, help, "counter")
	fmt.Fprintf(w, "%s %d\n", name, v)
}

func (w *textWriter) histogram(name, help string, cum [8]uint64, sum float64) {
	w.header(name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", name, le, cum[i])
	}
	fmt.Fprintf(w, "%s_count %d\n", name, cum[len(cum)-1])
	fmt.Fprintf(w, "%s_sum %s\n", name, strconv.FormatFloat(sum, 'g', -1, 64))
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
