package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// sectionComments documents each top-level key of the generated file, in
// output order.
var sectionComments = []struct {
	key     string
	comment string
}{
	{"logging", "Log level (DEBUG, INFO, WARN, ERROR), format (text, json) and output (stdout, stderr or a file path)."},
	{"shutdown_timeout", "Maximum time to wait for adapters to stop."},
	{"metrics", "Prometheus metrics and /healthz on the given port."},
	{"source", "The Smalltalk image to browse: tcp (a running image) or memory (a YAML fixture, empty for the demo image)."},
	{"views", "root_class is the top of the hierarchy view."},
	{"handles", "Where NFS file handles are kept: memory or badger (survives restarts)."},
	{"adapters", "Protocols serving the filesystem. At least one must be enabled."},
}

// InitConfig writes the default configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg section by section, each preceded by
// its comment.
func generateYAMLWithComments(cfg *Config) (string, error) {
	values, err := toMap(cfg)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# SqueakFS Configuration File\n")
	b.WriteString("#\n")
	b.WriteString("# Every setting can be overridden with an environment variable named\n")
	b.WriteString("# SQUEAKFS_<SECTION>_<KEY>, e.g. SQUEAKFS_LOGGING_LEVEL=DEBUG.\n")

	for _, section := range sectionComments {
		value, ok := values[section.key]
		if !ok {
			continue
		}

		out, err := yaml.Marshal(map[string]any{section.key: value})
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s: %w", section.key, err)
		}

		b.WriteString("\n# ")
		b.WriteString(section.comment)
		b.WriteString("\n")
		b.Write(out)
	}

	return b.String(), nil
}

// toMap converts cfg to nested maps keyed by mapstructure tag, with
// durations rendered as strings.
func toMap(cfg *Config) (map[string]any, error) {
	var out map[string]any
	if err := mapstructure.Decode(cfg, &out); err != nil {
		return nil, fmt.Errorf("failed to convert config: %w", err)
	}
	return normalize(out).(map[string]any), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = normalize(inner)
		}
		return t
	case time.Duration:
		return t.String()
	default:
		return v
	}
}
