package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docgateway"

var (
	registry = prometheus.NewRegistry()

	uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Document uploads by entity kind and outcome.",
	}, []string{"entity", "result"})

	uploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes_total",
		Help:      "Cumulative payload size written to object storage.",
	})

	downloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "downloads_total",
		Help:      "Document downloads by backend scheme and outcome.",
	}, []string{"scheme", "result"})

	throttledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_throttled_total",
		Help:      "Upload requests rejected by the rate limiter.",
	}, []string{"route"})

	storageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "storage_operation_duration_seconds",
		Help:      "Latency of object store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	storageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_operation_errors_total",
		Help:      "Failed object store operations.",
	}, []string{"operation"})
)

func init() {
	registry.MustRegister(
		uploadsTotal,
		uploadBytes,
		downloadsTotal,
		throttledTotal,
		storageDuration,
		storageErrors,
		prometheus.NewGoCollector(),
	)
}

// RecordUpload counts an upload attempt. size is only added on success.
func RecordUpload(entity string, size int, err error) {
	if err != nil {
		uploadsTotal.WithLabelValues(entity, "failed").Inc()
		return
	}
	uploadsTotal.WithLabelValues(entity, "ok").Inc()
	uploadBytes.Add(float64(size))
}

// RecordDownload counts a download attempt.
func RecordDownload(scheme string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	downloadsTotal.WithLabelValues(scheme, result).Inc()
}

// RecordThrottled counts an upload rejected with 429.
func RecordThrottled(route string) {
	if route == "" {
		route = "unmatched"
	}
	throttledTotal.WithLabelValues(route).Inc()
}

// ObserveStorage records the latency and outcome of one object store call.
func ObserveStorage(operation string, started time.Time, err error) {
	storageDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		storageErrors.WithLabelValues(operation).Inc()
	}
}

var (
	dbMu        sync.Mutex
	dbCollector prometheus.Collector
)

// TrackDB exports pool statistics for db under the given name. A later call
// replaces the previously tracked pool.
func TrackDB(name string, db *sql.DB) {
	dbMu.Lock()
	defer dbMu.Unlock()
	if dbCollector != nil {
		registry.Unregister(dbCollector)
		dbCollector = nil
	}
	if db == nil {
		return
	}
	c := collectors.NewDBStatsCollector(db, name)
	if err := registry.Register(c); err == nil {
		dbCollector = c
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// Gatherer returns the registry backing Handler.
func Gatherer() prometheus.Gatherer {
	return registry
}
