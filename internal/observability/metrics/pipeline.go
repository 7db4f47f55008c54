package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PipelineMetrics struct {
	registry *prometheus.Registry

	runTotal      *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runInFlight   prometheus.Gauge
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	categoryTotal *prometheus.CounterVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filings",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by outcome.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "filings",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline run duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "filings",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of pipeline runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filings",
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Total stage executions by stage and outcome.",
		},
		[]string{"service", "stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "filings",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	categoryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filings",
			Subsystem: "pipeline",
			Name:      "category_total",
			Help:      "Total successfully processed filings by assigned category.",
		},
		[]string{"service", "category"},
	)

	registry.MustRegister(runTotal, runDuration, runInFlight, stageTotal, stageDuration, categoryTotal)

	return &PipelineMetrics{
		registry:      registry,
		runTotal:      runTotal,
		runDuration:   runDuration,
		runInFlight:   runInFlight,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		categoryTotal: categoryTotal,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartRun() {
	m.runInFlight.Inc()
}

func (m *PipelineMetrics) FinishRun(service, category string, duration time.Duration, err error) {
	m.runInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.runTotal.WithLabelValues(service, status).Inc()
	m.runDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if err == nil && category != "" {
		m.categoryTotal.WithLabelValues(service, category).Inc()
	}
}

// StageRecorder adapts PipelineMetrics to the pipeline's stage
// observer contract for a fixed service label.
type StageRecorder struct {
	metrics *PipelineMetrics
	service string
}

func (m *PipelineMetrics) Recorder(service string) *StageRecorder {
	return &StageRecorder{metrics: m, service: service}
}

func (r *StageRecorder) ObserveStage(stage string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.stageTotal.WithLabelValues(r.service, stage, status).Inc()
	r.metrics.stageDuration.WithLabelValues(r.service, stage).Observe(duration.Seconds())
}
