// Package metrics defines interfaces for collecting scheduling metrics.
// Sinks like PromSink and InfluxSink (infra/metrics) record cycle results,
// planned setpoints, actuation commands and state of charge samples, and can
// be combined with NewMultiSink. The factory helpers return a MultiSink
// automatically when multiple sinks are configured.
package metrics
