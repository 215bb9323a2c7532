package prometheus

import (
	"time"

	"github.com/marmos91/squeakfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type fsMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesRead         prometheus.Counter
}

// NewFSMetrics creates Prometheus metrics for filesystem operations.
//
// Returns a no-op implementation if metrics are not enabled.
func NewFSMetrics() metrics.FSMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopFSMetrics()
	}

	reg := metrics.GetRegistry()

	return &fsMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "squeakfs_fs_operations_total",
				Help: "Filesystem operations by operation, view, resource kind and outcome",
			},
			[]string{"operation", "view", "kind", "outcome"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "squeakfs_fs_operation_duration_milliseconds",
				Help:    "Duration of filesystem operations in milliseconds",
				Buckets: []float64{1, 10, 100, 1000, 5000},
			},
			[]string{"operation", "view"},
		),
		bytesRead: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "squeakfs_fs_bytes_read_total",
				Help: "File content bytes returned to readers",
			},
		),
	}
}

func (m *fsMetrics) RecordOperation(operation, view, kind string, duration time.Duration, outcome string) {
	m.operationsTotal.WithLabelValues(operation, view, kind, outcome).Inc()
	m.operationDuration.WithLabelValues(operation, view).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *fsMetrics) RecordBytesRead(bytes int) {
	m.bytesRead.Add(float64(bytes))
}
