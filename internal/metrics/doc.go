// Package metrics exposes asset pipeline counters and timings.
//
// Components receive a Recorder through their options and default to
// NoopRecorder, so instrumentation never needs a nil check:
//
//	b := builder.New(fsys, c, builder.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers its collectors on the supplied registry and
// HTTPHandler serves that registry on /metrics.
package metrics
