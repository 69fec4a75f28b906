package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics tracks document runs by routed outcome plus the quality
// distribution the routing decisions are based on.
type PipelineMetrics struct {
	registry *prometheus.Registry

	outcomeTotal    *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	runsInFlight    prometheus.Gauge
	overallQuality  *prometheus.HistogramVec
	queueLagSeconds *prometheus.HistogramVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	outcomeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Total processed documents by routed outcome.",
		},
		[]string{"service", "outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds by routed outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of in-flight pipeline runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	overallQuality := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "overall_quality",
			Help:      "Distribution of overall quality scores per run.",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"service"},
	)
	queueLagSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between reprocess request and worker pickup.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(outcomeTotal, runDuration, runsInFlight, overallQuality, queueLagSeconds)

	return &PipelineMetrics{
		registry:        registry,
		outcomeTotal:    outcomeTotal,
		runDuration:     runDuration,
		runsInFlight:    runsInFlight,
		overallQuality:  overallQuality,
		queueLagSeconds: queueLagSeconds,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartRun() {
	m.runsInFlight.Inc()
}

func (m *PipelineMetrics) FinishRun(service, outcome string, overallQuality int, duration time.Duration) {
	m.runsInFlight.Dec()
	m.outcomeTotal.WithLabelValues(service, outcome).Inc()
	m.runDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
	m.overallQuality.WithLabelValues(service).Observe(float64(overallQuality))
}

func (m *PipelineMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLagSeconds.WithLabelValues(service).Observe(lag.Seconds())
}
