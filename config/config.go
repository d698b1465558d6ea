// Package config loads the YAML configuration of the structarray command.
//
// Values may reference environment variables as ${NAME} or ${NAME:-default}.
// Command-line flags override file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/structarray/cache"
	"github.com/arloliu/structarray/endian"
	"github.com/arloliu/structarray/errs"
	"github.com/arloliu/structarray/format"
	"github.com/arloliu/structarray/internal/logger"
	"github.com/arloliu/structarray/record"
)

// Config is the command configuration.
type Config struct {
	Logging Logging `yaml:"logging"`
	Decoder Decoder `yaml:"decoder"`
	Archive Archive `yaml:"archive"`
	Metrics Metrics `yaml:"metrics"`
}

// Logging configures the command logger.
type Logging struct {
	Level       string `yaml:"level"`
	Encoding    string `yaml:"encoding"`
	Development bool   `yaml:"development"`
}

// Decoder configures record decoding.
type Decoder struct {
	// ByteOrder of record files: little, big or native.
	ByteOrder string `yaml:"byte_order"`
	// LargeFileThreshold is the size in bytes from which record files are read
	// field by field from disk instead of being loaded in memory.
	LargeFileThreshold int64 `yaml:"large_file_threshold"`
	Cache              Cache `yaml:"cache"`
}

// Cache configures the persistent field cache of file-backed sources.
type Cache struct {
	Enabled bool `yaml:"enabled"`
	// Dir holds the cache files. Empty means next to each record file.
	Dir string `yaml:"dir"`
}

// Archive configures archive codecs.
type Archive struct {
	MapCompression    string `yaml:"map_compression"`
	ColumnCompression string `yaml:"column_compression"`
}

// Metrics configures the metrics dump.
type Metrics struct {
	// File receives the Prometheus text exposition when the command exits.
	File string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:    "warn",
			Encoding: "console",
		},
		Decoder: Decoder{
			ByteOrder:          "little",
			LargeFileThreshold: record.LargeFileThreshold,
			Cache:              Cache{Enabled: true},
		},
		Archive: Archive{
			MapCompression:    "zstd",
			ColumnCompression: "zstd",
		},
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IO("read config", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint: gosec
		return errs.IO("write config", err)
	}

	return nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// substituteEnvVars replaces ${NAME} with the value of NAME, and ${NAME:-def}
// with def when NAME is unset or empty.
func substituteEnvVars(content string) string {
	return envRef.ReplaceAllStringFunc(content, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}

		return m[2]
	})
}

// Validate checks every enumerated value.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	if _, err := c.ByteOrder(); err != nil {
		return fmt.Errorf("decoder.byte_order: %w", err)
	}

	if c.Decoder.LargeFileThreshold < 0 {
		return fmt.Errorf("decoder.large_file_threshold: negative value %d", c.Decoder.LargeFileThreshold)
	}

	if _, err := c.MapCompression(); err != nil {
		return fmt.Errorf("archive.map_compression: %w", err)
	}

	if _, err := c.ColumnCompression(); err != nil {
		return fmt.Errorf("archive.column_compression: %w", err)
	}

	return nil
}

// ByteOrder returns the configured record byte order.
func (c *Config) ByteOrder() (endian.EndianEngine, error) {
	return endian.ParseEngine(c.Decoder.ByteOrder)
}

// MapCompression returns the configured field map codec.
func (c *Config) MapCompression() (format.CompressionType, error) {
	return format.ParseCompressionType(c.Archive.MapCompression)
}

// ColumnCompression returns the configured column codec.
func (c *Config) ColumnCompression() (format.CompressionType, error) {
	return format.ParseCompressionType(c.Archive.ColumnCompression)
}

// LoggerConfig returns the logger configuration.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Logging.Level,
		Encoding:    c.Logging.Encoding,
		Development: c.Logging.Development,
	}
}

// CachePath returns the field cache path of a record file, or "" when the
// cache is disabled.
func (c *Config) CachePath(dataPath string) string {
	if !c.Decoder.Cache.Enabled {
		return ""
	}

	if c.Decoder.Cache.Dir == "" {
		return cache.PathFor(dataPath)
	}

	return filepath.Join(c.Decoder.Cache.Dir, filepath.Base(dataPath)+cache.Suffix)
}
