package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "assetpipe"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	buildDuration *prom.HistogramVec
	buildResults  *prom.CounterVec
	cacheLookups  *prom.CounterVec
	resolves      *prom.CounterVec
	registered    prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of physical asset builds",
			Buckets:   prom.DefBuckets,
		}, []string{"type"})
		pr.buildResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_results_total",
			Help:      "Build calls by result",
		}, []string{"result"})
		pr.cacheLookups = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and outcome",
		}, []string{"cache", "outcome"})
		pr.resolves = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_results_total",
			Help:      "Asset name resolutions by result",
		}, []string{"result"})
		pr.registered = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_assets",
			Help:      "Number of blueprints registered in the manifest",
		})
		reg.MustRegister(pr.buildDuration, pr.buildResults, pr.cacheLookups, pr.resolves, pr.registered)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(assetType string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(assetType).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildResult(result BuildResult) {
	if p == nil || p.buildResults == nil {
		return
	}
	p.buildResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncCacheLookup(cache string, hit bool) {
	if p == nil || p.cacheLookups == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.cacheLookups.WithLabelValues(cache, outcome).Inc()
}

func (p *PrometheusRecorder) IncResolveResult(result ResolveResult) {
	if p == nil || p.resolves == nil {
		return
	}
	p.resolves.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetRegisteredAssets(n int) {
	if p == nil || p.registered == nil {
		return
	}
	p.registered.Set(float64(n))
}
