package config

import (
	"fmt"

	"github.com/marmos91/squeakfs/pkg/adapter"
	"github.com/marmos91/squeakfs/pkg/adapter/fuse"
	"github.com/marmos91/squeakfs/pkg/adapter/nfs"
	"github.com/marmos91/squeakfs/pkg/handles"
	"github.com/marmos91/squeakfs/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the
// configuration. store issues the NFS file handles; nfsMetrics may be nil.
func CreateAdapters(cfg *Config, store handles.Store, nfsMetrics metrics.NFSMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.NFS.Enabled {
		adapters = append(adapters, nfs.New(cfg.Adapters.NFS, store, nfsMetrics))
	}

	if cfg.Adapters.FUSE.Enabled {
		adapters = append(adapters, fuse.New(cfg.Adapters.FUSE))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
