// Package config loads run settings from a YAML file or the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"hmf-id-generator/internal/store"
)

// Config holds all configuration for an id generation run
type Config struct {
	Secret string       `yaml:"secret"`
	Input  InputConfig  `yaml:"input"`
	Store  store.Config `yaml:"store"`
	Output OutputConfig `yaml:"output"`
	DryRun bool         `yaml:"dry_run"`
	Log    LogConfig    `yaml:"log"`
}

// InputConfig selects where the batch comes from: a sample list or a DICOM
// folder. Aliases apply to either.
type InputConfig struct {
	Samples     string `yaml:"samples"`
	Aliases     string `yaml:"aliases"`
	DicomFolder string `yaml:"dicom_folder"`
	Recursive   bool   `yaml:"recursive"`
	ScanCache   string `yaml:"scan_cache"`
	ErrorLog    string `yaml:"error_log"`
}

// OutputConfig holds the shareable export location.
type OutputConfig struct {
	Export string `yaml:"export"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultMappingFile is used when no store location is configured.
const DefaultMappingFile = "patient_mapping.json"

// Default returns the configuration used before any file or environment
// values are applied.
func Default() *Config {
	return &Config{
		Input: InputConfig{Recursive: true},
		Store: store.Config{
			Backend: store.BackendFile,
			File:    store.FileConfig{Path: DefaultMappingFile},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load loads configuration from a YAML file. ${VAR} references are expanded
// from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from IDGEN_* environment variables
func LoadFromEnv() *Config {
	def := Default()
	return &Config{
		Secret: getEnv("IDGEN_SECRET", ""),
		Input: InputConfig{
			Samples:     getEnv("IDGEN_SAMPLES", ""),
			Aliases:     getEnv("IDGEN_ALIASES", ""),
			DicomFolder: getEnv("IDGEN_DICOM_FOLDER", ""),
			Recursive:   getEnvBool("IDGEN_RECURSIVE", def.Input.Recursive),
			ScanCache:   getEnv("IDGEN_SCAN_CACHE", ""),
			ErrorLog:    getEnv("IDGEN_ERROR_LOG", ""),
		},
		Store: store.Config{
			Backend: getEnv("IDGEN_STORE", def.Store.Backend),
			File:    store.FileConfig{Path: getEnv("IDGEN_MAPPING_FILE", def.Store.File.Path)},
			Redis: store.RedisConfig{
				URL: getEnv("IDGEN_REDIS_URL", ""),
				Key: getEnv("IDGEN_REDIS_KEY", ""),
			},
			Postgres: store.PostgresConfig{
				URL:   getEnv("IDGEN_POSTGRES_URL", ""),
				Table: getEnv("IDGEN_POSTGRES_TABLE", ""),
			},
		},
		Output: OutputConfig{Export: getEnv("IDGEN_EXPORT", "")},
		DryRun: getEnvBool("IDGEN_DRY_RUN", false),
		Log: LogConfig{
			Level:  getEnv("IDGEN_LOG_LEVEL", def.Log.Level),
			Format: getEnv("IDGEN_LOG_FORMAT", def.Log.Format),
		},
	}
}

// Validate checks that the configuration describes a runnable batch.
func (c *Config) Validate() error {
	switch {
	case c.Input.Samples == "" && c.Input.DicomFolder == "":
		return errors.New("either a sample list or a DICOM folder is required")
	case c.Input.Samples != "" && c.Input.DicomFolder != "":
		return errors.New("a sample list and a DICOM folder cannot be combined")
	}

	switch c.Store.Backend {
	case "", store.BackendFile:
		if c.Store.File.Path == "" {
			return errors.New("store.file.path is required")
		}
	case store.BackendRedis:
		if c.Store.Redis.URL == "" {
			return errors.New("store.redis.url is required")
		}
	case store.BackendPostgres:
		if c.Store.Postgres.URL == "" {
			return errors.New("store.postgres.url is required")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. An empty name means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
