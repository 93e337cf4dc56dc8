// Package otel publishes authclient metrics through OpenTelemetry.
//
// [New] registers an Int64ObservableCounter per client counter and an
// Int64ObservableGauge for the latency buckets, one point per "le" attribute. One callback reads
// [authclient.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
