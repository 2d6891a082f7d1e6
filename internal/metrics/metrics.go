package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taskspares"

var (
	registry = prometheus.NewRegistry()
	once     sync.Once

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Extraction runs by mode and result",
		},
		[]string{"mode", "result"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of extraction runs by mode",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	pagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_processed_total",
			Help:      "Pages read, by mode",
		},
		[]string{"mode"},
	)

	rowsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_extracted_total",
			Help:      "Workbook rows extracted, by sheet (tasks, spares)",
		},
		[]string{"sheet"},
	)

	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Queue jobs handled by result (success, dlq)",
		},
		[]string{"result"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Queue depth gauges for stream and dlq",
		},
		[]string{"type"},
	)
)

// Init registers collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		registry.MustRegister(runsTotal, runDuration, pagesProcessed, rowsExtracted, jobsTotal, queueDepth)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps all metrics to path in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, registry)
}

// ObserveRun records one finished run.
func ObserveRun(mode, result string, dur time.Duration) {
	runsTotal.WithLabelValues(mode, result).Inc()
	runDuration.WithLabelValues(mode).Observe(dur.Seconds())
}

// AddExtracted records pages read and rows produced by a successful run.
func AddExtracted(mode string, pages, tasks, spares int) {
	pagesProcessed.WithLabelValues(mode).Add(float64(pages))
	rowsExtracted.WithLabelValues("tasks").Add(float64(tasks))
	rowsExtracted.WithLabelValues("spares").Add(float64(spares))
}

func IncJob(result string) { jobsTotal.WithLabelValues(result).Inc() }

func SetQueueDepth(kind string, v int64) { queueDepth.WithLabelValues(kind).Set(float64(v)) }
