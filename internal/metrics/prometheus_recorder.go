package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	renderDuration prom.Histogram
	documents      *prom.CounterVec
	cacheLookups   *prom.CounterVec
	snippetErrors  *prom.CounterVec
	cacheEntries   prom.Gauge
	buildDuration  prom.Histogram
	buildOutcome   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the docsnip metrics on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		renderDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docsnip",
			Name:      "document_render_duration_seconds",
			Help:      "Time spent rendering a single document",
			Buckets:   prom.ExponentialBuckets(0.0005, 2, 12),
		}),
		documents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsnip",
			Name:      "documents_total",
			Help:      "Documents processed by result",
		}, []string{"result"}),
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsnip",
			Name:      "snippet_cache_lookups_total",
			Help:      "Snippet cache lookups by outcome",
		}, []string{"outcome"}),
		snippetErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsnip",
			Name:      "snippet_errors_total",
			Help:      "Include directives that could not be resolved, by kind",
		}, []string{"kind"}),
		cacheEntries: prom.NewGauge(prom.GaugeOpts{
			Namespace: "docsnip",
			Name:      "snippet_cache_entries",
			Help:      "Entries in the build-scoped snippet cache at the end of the last build",
		}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docsnip",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsnip",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.renderDuration, pr.documents, pr.cacheLookups, pr.snippetErrors, pr.cacheEntries, pr.buildDuration, pr.buildOutcome)
	return pr
}

func (p *PrometheusRecorder) ObserveRenderDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.renderDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDocumentResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.documents.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncCacheLookup(hit bool) {
	if p == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.cacheLookups.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncSnippetError(kind string) {
	if p == nil {
		return
	}
	p.snippetErrors.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetCacheEntries(n int) {
	if p == nil {
		return
	}
	p.cacheEntries.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}
