// Package otel publishes goIdentity client metrics through an OpenTelemetry
// Meter.
//
// [New] registers one Int64ObservableCounter per client counter and one
// Int64ObservableGauge per latency histogram, with an "le" attribute per
// cumulative bucket. A single callback reads [goIdentity.Client.MetricsSnapshot]
// on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
