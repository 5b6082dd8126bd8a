// Package config handles project configuration and environment loading.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the optional per-project configuration file, discovered by
// walking up from the working directory.
const ProjectFile = "bdp.yml"

// DefaultAssetsDir is the directory name searched for when no assets root
// is configured.
const DefaultAssetsDir = "assets"

// Config holds the configuration for one orchestrator invocation.
type Config struct {
	DBPath      string `yaml:"db_path"`     // DuckDB database file (default "bdp.duckdb")
	AssetsRoot  string `yaml:"assets_root"` // root directory scanned for asset files
	LogLevel    string `yaml:"log_level"`   // debug, info, warn, error (default "info")
	Concurrency int    `yaml:"concurrency"` // max assets executing at once (default 1)
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

// Load resolves configuration with precedence: environment > project file >
// defaults. An empty dir means "start from the working directory".
func Load(dir string) (*Config, error) {
	cfg := &Config{
		DBPath:      "bdp.duckdb",
		LogLevel:    "info",
		Concurrency: 1,
	}

	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}

	if path, ok := findUp(dir, ProjectFile); ok {
		if err := loadProjectFile(path, cfg); err != nil {
			return nil, err
		}
		// Relative paths in the project file resolve against its directory.
		base := filepath.Dir(path)
		if cfg.DBPath != "" && !filepath.IsAbs(cfg.DBPath) {
			cfg.DBPath = filepath.Join(base, cfg.DBPath)
		}
		if cfg.AssetsRoot != "" && !filepath.IsAbs(cfg.AssetsRoot) {
			cfg.AssetsRoot = filepath.Join(base, cfg.AssetsRoot)
		}
	}

	applyEnv(cfg)

	if cfg.AssetsRoot == "" {
		if root, ok := findUp(dir, DefaultAssetsDir); ok {
			cfg.AssetsRoot = root
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadProjectFile decodes a bdp.yml file into cfg. Unknown fields are
// rejected so typos surface immediately.
func loadProjectFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg fields from BDP_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("BDP_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("BDP_ASSETS_ROOT"); v != "" {
		cfg.AssetsRoot = v
	}
	if v := os.Getenv("BDP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BDP_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
}

// findUp walks from dir to the filesystem root looking for name.
func findUp(dir, name string) (string, bool) {
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
