// Package metrics holds the Prometheus collectors for one relay run.
//
// A run is a one-shot batch, so nothing is served over HTTP. Collectors live
// in a private registry which is written to a node_exporter textfile at the
// end of the run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for fallback extraction attempts.
const (
	OutcomeReplaced = "replaced"
	OutcomeKept     = "kept"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// Recorder groups the run's collectors.
type Recorder struct {
	registry *prometheus.Registry

	SourceFetches     *prometheus.CounterVec
	ArticlesCollected *prometheus.CounterVec
	Fallbacks         *prometheus.CounterVec
	ExtractDuration   *prometheus.HistogramVec
	RunDuration       prometheus.Gauge
	RunTimestamp      prometheus.Gauge
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		SourceFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_source_fetches_total",
				Help: "Source tasks by terminal status.",
			},
			[]string{"source", "status"},
		),
		ArticlesCollected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_articles_collected_total",
				Help: "Articles produced per source before deduplication.",
			},
			[]string{"source"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_content_fallbacks_total",
				Help: "Web/PDF fallback extraction attempts by outcome.",
			},
			[]string{"kind", "outcome"},
		),
		ExtractDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_extract_duration_seconds",
				Help:    "Duration of fallback extractions.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		RunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_run_last_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}

	r.registry.MustRegister(
		r.SourceFetches,
		r.ArticlesCollected,
		r.Fallbacks,
		r.ExtractDuration,
		r.RunDuration,
		r.RunTimestamp,
	)
	return r
}

// ObserveSource records a finished source task.
func (r *Recorder) ObserveSource(source, status string, count int) {
	if r == nil {
		return
	}
	r.SourceFetches.WithLabelValues(source, status).Inc()
	r.ArticlesCollected.WithLabelValues(source).Add(float64(count))
}

// ObserveFallback records one fallback extraction.
func (r *Recorder) ObserveFallback(kind, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Fallbacks.WithLabelValues(kind, outcome).Inc()
	if outcome != OutcomeSkipped {
		r.ExtractDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// ObserveRun records run wall time and completion time.
func (r *Recorder) ObserveRun(started, finished time.Time) {
	if r == nil {
		return
	}
	r.RunDuration.Set(finished.Sub(started).Seconds())
	r.RunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
