package prometheus

import (
	"time"

	"github.com/marmos91/squeakfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type sourceMetrics struct {
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	reconnects    prometheus.Counter
	connected     prometheus.Gauge
}

// NewSourceMetrics creates Prometheus metrics for image queries.
//
// Returns a no-op implementation if metrics are not enabled.
func NewSourceMetrics() metrics.SourceMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopSourceMetrics()
	}

	reg := metrics.GetRegistry()

	return &sourceMetrics{
		queriesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "squeakfs_image_queries_total",
				Help: "Queries sent to the Smalltalk image by selector and outcome",
			},
			[]string{"selector", "outcome"},
		),
		queryDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "squeakfs_image_query_duration_milliseconds",
				Help:    "Round trip time of image queries in milliseconds",
				Buckets: []float64{0.5, 1, 5, 25, 100, 1000, 5000},
			},
			[]string{"selector"},
		),
		reconnects: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "squeakfs_image_reconnects_total",
				Help: "Times the image connection was dropped and re-dialed",
			},
		),
		connected: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "squeakfs_image_connected",
				Help: "1 while a connection to the image is open",
			},
		),
	}
}

func (m *sourceMetrics) RecordQuery(selector string, duration time.Duration, outcome string) {
	m.queriesTotal.WithLabelValues(selector, outcome).Inc()
	m.queryDuration.WithLabelValues(selector).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *sourceMetrics) RecordReconnect() {
	m.reconnects.Inc()
}

func (m *sourceMetrics) SetConnected(connected bool) {
	if connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}
