// Package prometheus defines the service's metric surface.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	scoreDurationBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1}
	trainDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 300, 1800}
)

// Metrics holds every metric the service exports.  All components share one
// instance, registered against one registry, exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ScoreRequestsTotal *prometheus.CounterVec
	ScoreDuration      *prometheus.HistogramVec
	ScoreCacheHits     *prometheus.CounterVec
	ScoreCacheMisses   *prometheus.CounterVec

	TrainingRunsTotal    *prometheus.CounterVec
	TrainingDuration     *prometheus.HistogramVec
	ModelVocabularySize  *prometheus.GaugeVec
	ModelCorpusMolecules *prometheus.GaugeVec

	EventsPublishedTotal *prometheus.CounterVec
}

// NewMetrics builds and registers the full metric set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "molscore_http_requests_total",
			Help: "HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "molscore_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path"}),

		ScoreRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "molscore_score_requests_total",
			Help: "Scoring requests by model kind and result.",
		}, []string{"model_kind", "result"}),
		ScoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "molscore_score_duration_seconds",
			Help:    "Time to score one molecule, cache time included.",
			Buckets: scoreDurationBuckets,
		}, []string{"model_kind"}),
		ScoreCacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "molscore_score_cache_hits_total",
			Help: "Score cache hits by model kind.",
		}, []string{"model_kind"}),
		ScoreCacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "molscore_score_cache_misses_total",
			Help: "Score cache misses by model kind.",
		}, []string{"model_kind"}),

		TrainingRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "molscore_training_runs_total",
			Help: "Training runs by model kind and result.",
		}, []string{"model_kind", "result"}),
		TrainingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "molscore_training_duration_seconds",
			Help:    "Wall time of one training pass.",
			Buckets: trainDurationBuckets,
		}, []string{"model_kind"}),
		ModelVocabularySize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "molscore_model_vocabulary_size",
			Help: "Distinct keys in the active model's frequency table.",
		}, []string{"model_kind"}),
		ModelCorpusMolecules: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "molscore_model_corpus_molecules",
			Help: "Molecules accepted into the active model's corpus.",
		}, []string{"model_kind"}),

		EventsPublishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "molscore_events_published_total",
			Help: "Domain events published by topic and result.",
		}, []string{"topic", "result"}),
	}
}

// Handler returns the /metrics HTTP handler for this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveScore records one scoring call.
func (m *Metrics) ObserveScore(modelKind, result string, elapsed time.Duration) {
	m.ScoreRequestsTotal.WithLabelValues(modelKind, result).Inc()
	m.ScoreDuration.WithLabelValues(modelKind).Observe(elapsed.Seconds())
}

// ObserveTraining records one training pass.
func (m *Metrics) ObserveTraining(modelKind, result string, elapsed time.Duration, vocabularySize, accepted int) {
	m.TrainingRunsTotal.WithLabelValues(modelKind, result).Inc()
	m.TrainingDuration.WithLabelValues(modelKind).Observe(elapsed.Seconds())
	if result == ResultOK {
		m.ModelVocabularySize.WithLabelValues(modelKind).Set(float64(vocabularySize))
		m.ModelCorpusMolecules.WithLabelValues(modelKind).Set(float64(accepted))
	}
}

// Result label values.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)
