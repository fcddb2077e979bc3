package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vertretungsanalyse"

// Recorder collects analysis metrics on its own registry
type Recorder struct {
	registry  *prometheus.Registry
	analyses  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	cacheHits prometheus.Counter
}

// NewRecorder creates a recorder with all collectors registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Number of analyzed emails by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent analyzing an email, including cache lookups.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Number of analyses answered from the result cache.",
		}),
	}

	r.registry.MustRegister(r.analyses, r.duration, r.cacheHits)
	return r
}

// ObserveAnalysis counts one analysis and its duration
func (r *Recorder) ObserveAnalysis(outcome string, seconds float64) {
	r.analyses.WithLabelValues(outcome).Inc()
	r.duration.WithLabelValues(outcome).Observe(seconds)
}

// ObserveCacheHit counts one cache hit
func (r *Recorder) ObserveCacheHit() {
	r.cacheHits.Inc()
}

// Registry exposes the registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metrics in the text exposition format,
// for the node exporter textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
