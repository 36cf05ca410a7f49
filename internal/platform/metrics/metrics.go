// Package metrics declares the Prometheus collectors of the pipeline. They
// are registered with the default registry at init and served by /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imagebatch"

const (
	MetricTasksCreated   = "tasks_created_total"
	MetricRowsProcessed  = "rows_processed_total"
	MetricPoolExhausted  = "pool_exhausted_total"
	MetricPoolInUse      = "pool_connections_in_use"
	MetricOverflowDepth  = "overflow_queue_depth"
	MetricWaitDuration   = "wait_duration_seconds"
	MetricWaitsAbandoned = "waits_abandoned_total"
	MetricBatchJobs      = "batch_jobs_total"
	MetricVisionRequests = "vision_requests_total"
	MetricJobLogUploads  = "job_log_uploads_total"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var CounterTasksCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricTasksCreated,
		Help:      "Remote task creation calls by outcome.",
	},
	[]string{"outcome"},
)

var CounterRowsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRowsProcessed,
		Help:      "Rows processed by outcome.",
	},
	[]string{"outcome"},
)

var CounterPoolExhausted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricPoolExhausted,
		Help:      "Completion reads routed through the overflow queue.",
	},
)

var GaugePoolInUse = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      MetricPoolInUse,
		Help:      "Leased datastore connections.",
	},
)

var GaugeOverflowDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      MetricOverflowDepth,
		Help:      "Waits parked in the overflow queue.",
	},
)

var HistogramWaitDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      MetricWaitDuration,
		Help:      "Time from the first completion read to completion or abandonment.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
	},
)

var CounterWaitsAbandoned = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricWaitsAbandoned,
		Help:      "Completion waits that reached their deadline.",
	},
)

var CounterBatchJobs = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricBatchJobs,
		Help:      "Background batch jobs by outcome.",
	},
	[]string{"outcome"},
)

var CounterVisionRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricVisionRequests,
		Help:      "Vision model calls by model and outcome.",
	},
	[]string{"model", "outcome"},
)

var CounterJobLogUploads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricJobLogUploads,
		Help:      "Job log uploads to object storage by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(CounterTasksCreated)
	prometheus.MustRegister(CounterRowsProcessed)
	prometheus.MustRegister(CounterPoolExhausted)
	prometheus.MustRegister(GaugePoolInUse)
	prometheus.MustRegister(GaugeOverflowDepth)
	prometheus.MustRegister(HistogramWaitDuration)
	prometheus.MustRegister(CounterWaitsAbandoned)
	prometheus.MustRegister(CounterBatchJobs)
	prometheus.MustRegister(CounterVisionRequests)
	prometheus.MustRegister(CounterJobLogUploads)
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
