package prometheus

import (
	"time"

	"github.com/marmos91/squeakfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// nfsMetrics is the Prometheus implementation of metrics.NFSMetrics.
type nfsMetrics struct {
	requestsTotal          *prometheus.CounterVec
	requestDuration        *prometheus.HistogramVec
	requestsInFlight       *prometheus.GaugeVec
	bytesRead              prometheus.Counter
	activeConnections      prometheus.Gauge
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
}

// NewNFSMetrics creates a new Prometheus-backed NFSMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewNFSMetrics() metrics.NFSMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopNFSMetrics()
	}

	reg := metrics.GetRegistry()

	return &nfsMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "squeakfs_nfs_requests_total",
				Help: "Total number of NFS and MOUNT requests by procedure and status",
			},
			[]string{"procedure", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "squeakfs_nfs_request_duration_milliseconds",
				Help: "Duration of NFS requests in milliseconds",
				Buckets: []float64{
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
					5000, // image timeout territory
				},
			},
			[]string{"procedure"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "squeakfs_nfs_requests_in_flight",
				Help: "Current number of NFS requests being processed",
			},
			[]string{"procedure"},
		),
		bytesRead: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "squeakfs_nfs_bytes_read_total",
				Help: "Total bytes returned by NFS READ",
			},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "squeakfs_nfs_active_connections",
				Help: "Current number of open NFS connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "squeakfs_nfs_connections_accepted_total",
				Help: "Total number of accepted NFS connections",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "squeakfs_nfs_connections_closed_total",
				Help: "Total number of closed NFS connections",
			},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "squeakfs_nfs_connections_force_closed_total",
				Help: "Connections closed forcibly after the shutdown timeout",
			},
		),
	}
}

func (m *nfsMetrics) RecordRequest(procedure string, duration time.Duration, status string) {
	m.requestsTotal.WithLabelValues(procedure, status).Inc()
	m.requestDuration.WithLabelValues(procedure).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *nfsMetrics) RecordRequestStart(procedure string) {
	m.requestsInFlight.WithLabelValues(procedure).Inc()
}

func (m *nfsMetrics) RecordRequestEnd(procedure string) {
	m.requestsInFlight.WithLabelValues(procedure).Dec()
}

func (m *nfsMetrics) RecordBytesRead(bytes int) {
	m.bytesRead.Add(float64(bytes))
}

func (m *nfsMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *nfsMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *nfsMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *nfsMetrics) RecordConnectionForceClosed() {
	m.connectionsForceClosed.Inc()
}
