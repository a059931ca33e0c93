// Package metrics provides build and render observability for docsnip.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing needs nil checks:
//
//	renderer := render.New(resolver, render.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The Prometheus implementation is exported either over HTTP (watch mode, see
// HTTPHandler) or as a node_exporter textfile after a one-shot build (see
// WriteTextfile).
package metrics
