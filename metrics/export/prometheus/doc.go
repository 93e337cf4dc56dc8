// Package prometheus exposes authclient metrics to Prometheus.
//
// [New] reads [authclient.Client.MetricsSnapshot] on every scrape.
// [Exporter.Handler] renders the text exposition format directly, and
// [Exporter.Collector] plugs the same values into a caller-owned
// prometheus.Registry. Counter names are prefixed authclient_*_total; the single
// histogram is authclient_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
