// Package prometheus exposes goIdentity client metrics as a
// prometheus/client_golang Collector.
//
// [NewExporter] reads from a [goIdentity.Client]. Register the exporter with
// any registry, or mount [Exporter.Handler], which serves it from a private
// registry. Counter names are goidentity_*_total; the latency histograms are
// goidentity_init_latency_seconds and goidentity_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
