package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Loads: итог каждой загрузки по источнику (remote, sample, none) и исходу
	Loads *prometheus.CounterVec

	// Latency: сколько заняли запросы к Apps Script (включая ретраи)
	RemoteDuration *prometheus.HistogramVec

	// Submissions: записи по исходу (ok, duplicate, error)
	Submissions *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - closed, 0.5 - half-open, 1 - open)
	CircuitBreakerState *prometheus.GaugeVec

	// Journal: заполненность буфера журнала (backpressure)
	JournalBufferFill prometheus.Gauge

	// JournalDropped: события, не попавшие в буфер
	JournalDropped prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Loads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "kpidash_loads_total",
			Help: "Dashboard loads by data source and outcome.",
		}, []string{"source", "outcome", "mode"}),

		RemoteDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kpidash_remote_request_duration_seconds",
			Help:    "Histogram of Apps Script request latencies.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"operation", "status"}),

		Submissions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "kpidash_submissions_total",
			Help: "Submitted indicator records by outcome.",
		}, []string{"outcome"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "kpidash_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 0.5=half-open, 1=open).",
		}, []string{"name"}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "kpidash_journal_buffer_utilization",
			Help: "Current number of events in submission journal buffer.",
		}),

		JournalDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kpidash_journal_dropped_total",
			Help: "Submission events dropped because the journal buffer was full.",
		}),
	}
}
