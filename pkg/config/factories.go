package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/handles"
	"github.com/marmos91/squeakfs/pkg/handles/badger"
	hmemory "github.com/marmos91/squeakfs/pkg/handles/memory"
	"github.com/marmos91/squeakfs/pkg/metrics"
	"github.com/marmos91/squeakfs/pkg/squeak"
	"github.com/marmos91/squeakfs/pkg/squeak/memory"
)

// decodeOptions decodes a type-specific option map into out. Durations may
// be written as strings ("5s") and numbers may arrive as strings from
// environment variables.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// CreateSource creates the image source selected by cfg.Type.
//
// Supported types:
//   - "tcp": squeak.Client talking to a running image
//   - "memory": memory.Image loaded from a YAML fixture, or the demo image
//
// The returned source may implement io.Closer; callers should close it on
// shutdown.
func CreateSource(ctx context.Context, cfg *SourceConfig, m metrics.SourceMetrics) (squeak.Source, error) {
	switch cfg.Type {
	case "tcp":
		return createTCPSource(cfg, m)
	case "memory":
		return createMemorySource(cfg.Memory)
	default:
		return nil, fmt.Errorf("unknown source type: %q", cfg.Type)
	}
}

func createTCPSource(cfg *SourceConfig, m metrics.SourceMetrics) (squeak.Source, error) {
	var clientCfg squeak.ClientConfig
	if err := decodeOptions(cfg.TCP, &clientCfg); err != nil {
		return nil, fmt.Errorf("failed to decode tcp source config: %w", err)
	}

	clientCfg.QueriesPerSecond = cfg.RateLimit.RequestsPerSecond
	clientCfg.Burst = cfg.RateLimit.Burst

	if err := validate.Struct(&clientCfg); err != nil {
		return nil, fmt.Errorf("tcp source: %w", formatValidationError(err))
	}

	client, err := squeak.NewClient(clientCfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create tcp source: %w", err)
	}

	logger.Info("Image source: tcp %s", client.Addr())
	return client, nil
}

func createMemorySource(options map[string]any) (squeak.Source, error) {
	type MemorySourceConfig struct {
		Fixture string `mapstructure:"fixture"`
	}

	var sourceCfg MemorySourceConfig
	if err := decodeOptions(options, &sourceCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory source config: %w", err)
	}

	if sourceCfg.Fixture == "" {
		logger.Info("Image source: built-in demo image")
		return memory.Demo(), nil
	}

	img, err := memory.LoadFile(sourceCfg.Fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory source: %w", err)
	}

	logger.Info("Image source: fixture %s", sourceCfg.Fixture)
	return img, nil
}

// CreateHandleStore creates the NFS handle store selected by cfg.Type.
//
// Supported types:
//   - "memory": handles live as long as the process
//   - "badger": handles persist across restarts
func CreateHandleStore(ctx context.Context, cfg *HandlesConfig) (handles.Store, error) {
	switch cfg.Type {
	case "memory":
		return hmemory.New(), nil
	case "badger":
		return createBadgerHandleStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown handle store type: %q", cfg.Type)
	}
}

func createBadgerHandleStore(ctx context.Context, options map[string]any) (handles.Store, error) {
	type BadgerHandleStoreConfig struct {
		DBPath           string `mapstructure:"db_path"`
		InMemory         bool   `mapstructure:"in_memory"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_size_mb"`
		IndexCacheSizeMB int64  `mapstructure:"index_cache_size_mb"`
	}

	var storeCfg BadgerHandleStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger handle store config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger handle store: db_path is required")
	}

	store, err := badger.New(ctx, badger.Config{
		DBPath:           storeCfg.DBPath,
		InMemory:         storeCfg.InMemory,
		BlockCacheSizeMB: storeCfg.BlockCacheSizeMB,
		IndexCacheSizeMB: storeCfg.IndexCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger handle store: %w", err)
	}

	logger.Info("Handle store: badger %s", storeCfg.DBPath)
	return store, nil
}
