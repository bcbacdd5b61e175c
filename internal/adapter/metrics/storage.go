package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics tracks object store calls.
type StorageMetrics struct {
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	UploadedBytes     prometheus.Counter
}

// NewStorageMetrics creates and registers object store metrics on the given registry.
func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	m := &StorageMetrics{
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of object store operations in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_errors_total",
			Help:      "Total number of failed object store operations.",
		}, []string{"operation"}),
		UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "uploaded_bytes_total",
			Help:      "Total number of bytes uploaded to the object store.",
		}),
	}

	reg.MustRegister(m.OperationDuration, m.OperationErrors, m.UploadedBytes)
	return m
}

// Observe records one operation. A nil receiver is a no-op.
func (m *StorageMetrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.OperationErrors.WithLabelValues(operation).Inc()
	}
}
