package config

import (
	"github.com/marmos91/squeakfs/pkg/metrics"
	promMetrics "github.com/marmos91/squeakfs/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// NFSMetrics is the metrics collector for NFS adapter (never nil, uses noop if disabled)
	NFSMetrics metrics.NFSMetrics

	// SourceMetrics observes queries to the image (never nil)
	SourceMetrics metrics.SourceMetrics

	// FSMetrics observes filesystem calls (never nil)
	FSMetrics metrics.FSMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server, probing health with the given func
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled, no-op implementations are returned and Server
// is nil.
func InitializeMetrics(cfg *Config, health metrics.HealthFunc) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			NFSMetrics:    metrics.NewNoopNFSMetrics(),
			SourceMetrics: metrics.NewNoopSourceMetrics(),
			FSMetrics:     metrics.NewNoopFSMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port:   cfg.Metrics.Port,
		Health: health,
	})

	return &MetricsResult{
		Server:        server,
		NFSMetrics:    promMetrics.NewNFSMetrics(),
		SourceMetrics: promMetrics.NewSourceMetrics(),
		FSMetrics:     promMetrics.NewFSMetrics(),
	}
}
