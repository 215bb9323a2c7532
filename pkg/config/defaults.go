package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/squeakfs/pkg/adapter/fuse"
	"github.com/marmos91/squeakfs/pkg/adapter/nfs"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Option maps get the keys of every implementation, so a generated
//     file documents all of them
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	applyMetricsDefaults(&cfg.Metrics)
	applySourceDefaults(&cfg.Source)

	if cfg.Views.RootClass == "" {
		cfg.Views.RootClass = vfs.DefaultRootClass
	}

	applyHandlesDefaults(&cfg.Handles)
	applyAdaptersDefaults(&cfg.Adapters)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applySourceDefaults(cfg *SourceConfig) {
	if cfg.Type == "" {
		cfg.Type = "tcp"
	}

	if cfg.TCP == nil {
		cfg.TCP = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}

	setDefault(cfg.TCP, "host", "localhost")
	setDefault(cfg.TCP, "port", 40000)
	setDefault(cfg.TCP, "dial_timeout", "2s")
	setDefault(cfg.TCP, "io_timeout", "5s")
	setDefault(cfg.TCP, "max_retries", 5)
	setDefault(cfg.TCP, "retry_backoff", "200ms")
	setDefault(cfg.TCP, "encoding", "latin1")

	// An empty fixture serves the built-in demo image.
	setDefault(cfg.Memory, "fixture", "")
}

func applyHandlesDefaults(cfg *HandlesConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	setDefault(cfg.Badger, "db_path", filepath.Join(GetConfigDir(), "handles"))
	setDefault(cfg.Badger, "in_memory", false)
}

// applyAdaptersDefaults enables NFS when nothing was configured at all, so
// a config loaded without a file can still serve.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	if !cfg.NFS.Enabled && !cfg.FUSE.Enabled && cfg.NFS.Port == 0 {
		cfg.NFS.Enabled = true
	}

	applyNFSDefaults(&cfg.NFS)
	applyFUSEDefaults(&cfg.FUSE)
}

func applyNFSDefaults(cfg *nfs.NFSConfig) {
	if cfg.Port == 0 {
		cfg.Port = 2049
	}

	// MaxConnections defaults to 0 (unlimited)

	if cfg.MaxReadSize == 0 {
		cfg.MaxReadSize = 64 * 1024
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = 5 * time.Minute
	}
}

func applyFUSEDefaults(cfg *fuse.FUSEConfig) {
	if cfg.EntryTimeout == 0 {
		cfg.EntryTimeout = time.Second
	}
	if cfg.AttrTimeout == 0 {
		cfg.AttrTimeout = time.Second
	}
}

func setDefault(options map[string]any, key string, value any) {
	if _, ok := options[key]; !ok {
		options[key] = value
	}
}

// GetDefaultConfig returns a Config with every default applied. It serves
// InitConfig, the viper defaults and tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			NFS: nfs.NFSConfig{Enabled: true},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
