package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/squeakfs/pkg/adapter/fuse"
	"github.com/marmos91/squeakfs/pkg/adapter/nfs"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "SQUEAKFS"

// Config represents the complete SqueakFS configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SQUEAKFS_*, "." replaced by "_")
//  2. Configuration file (YAML)
//  3. Default values
//
// Source and handle store selection follow the same pattern: a Type field
// picks the implementation and only the option map named after it is
// decoded, by that implementation's factory.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`

	// ShutdownTimeout bounds the graceful shutdown of all adapters.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	Metrics MetricsConfig `mapstructure:"metrics"`

	// Source selects the Smalltalk image to browse.
	Source SourceConfig `mapstructure:"source"`

	Views ViewsConfig `mapstructure:"views"`

	// Handles selects where NFS file handles are kept.
	Handles HandlesConfig `mapstructure:"handles"`

	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"min=0,max=65535"`
}

// SourceConfig selects the image the filesystem shows.
type SourceConfig struct {
	// Type specifies which source implementation to use
	// Valid values: tcp, memory
	Type string `mapstructure:"type" validate:"required,oneof=tcp memory"`

	// TCP holds squeak.ClientConfig options. Only used when Type = "tcp".
	TCP map[string]any `mapstructure:"tcp"`

	// Memory holds in-memory image options. Only used when Type = "memory".
	Memory map[string]any `mapstructure:"memory"`

	// RateLimit throttles queries to a tcp source.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig is a token bucket in front of the image connection.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained query rate. 0 disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`
	Burst             int     `mapstructure:"burst" validate:"min=0"`
}

// ViewsConfig tunes the virtual directory views.
type ViewsConfig struct {
	// RootClass is the top of the hierarchy view.
	RootClass string `mapstructure:"root_class" validate:"required,classname"`
}

// HandlesConfig specifies the NFS handle store.
type HandlesConfig struct {
	// Type specifies which handle store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Badger holds BadgerDB options. Only used when Type = "badger".
	Badger map[string]any `mapstructure:"badger"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	NFS  nfs.NFSConfig   `mapstructure:"nfs"`
	FUSE fuse.FUSEConfig `mapstructure:"fuse"`
}

// Load loads configuration from file, environment, and defaults, then
// validates it.
//
// An empty configPath uses the default location; a missing file there is
// not an error. An explicit configPath must exist.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if err := setupViper(v, configPath); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper registers every default key, so environment variables can
// override settings the file does not mention.
func setupViper(v *viper.Viper, configPath string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := toMap(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to build default settings: %w", err)
	}
	setDefaults(v, "", defaults)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	return nil
}

func setDefaults(v *viper.Viper, prefix string, values map[string]any) {
	for key, value := range values {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok && len(nested) > 0 {
			setDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, value)
	}
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configPath == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/squeakfs, falling back to
// ~/.config/squeakfs and then the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "squeakfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "squeakfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
