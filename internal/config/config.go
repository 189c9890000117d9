// Package config loads the settings of the flowgraph binaries.
//
// Settings come from an optional YAML or JSON file, chosen by extension, and
// are then overridden by FLOWGRAPH_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/flowgraph/internal/logging"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverLoam     = "loam"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLOWGRAPH_"

var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration document.
type Config struct {
	Server     Server     `json:"server" yaml:"server"`
	Store      Store      `json:"store" yaml:"store"`
	Log        Log        `json:"log" yaml:"log"`
	Metrics    Metrics    `json:"metrics" yaml:"metrics"`
	Encryption Encryption `json:"encryption" yaml:"encryption"`
	Privacy    Privacy    `json:"privacy" yaml:"privacy"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Store selects and configures the persistence backends.
//
// Graphs and template edits live in the driver's store. Sessions live in
// Redis whenever RedisURL is set, otherwise alongside the graphs (or in
// SessionDir for the loam and memory drivers).
type Store struct {
	Driver      string        `json:"driver" yaml:"driver"`
	DatabaseURL string        `json:"databaseUrl" yaml:"databaseUrl"`
	RedisURL    string        `json:"redisUrl" yaml:"redisUrl"`
	LoamDir     string        `json:"loamDir" yaml:"loamDir"`
	SessionDir  string        `json:"sessionDir" yaml:"sessionDir"`
	SessionTTL  time.Duration `json:"sessionTtl" yaml:"sessionTtl"`
	KeyPrefix   string        `json:"keyPrefix" yaml:"keyPrefix"`
	LockTTL     time.Duration `json:"lockTtl" yaml:"lockTtl"`
}

// Log configures the application logger.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Metrics toggles the Prometheus collectors and the /metrics endpoint.
type Metrics struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Encryption holds the session encryption keys, base64 encoded.
// An empty Key disables encryption.
type Encryption struct {
	Key          string   `json:"key" yaml:"key"`
	FallbackKeys []string `json:"fallbackKeys" yaml:"fallbackKeys"`
}

// Privacy lists regular expressions of data keys masked before sessions
// are stored.
type Privacy struct {
	MaskPatterns []string `json:"maskPatterns" yaml:"maskPatterns"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080"},
		Store: Store{
			Driver:     DriverMemory,
			LoamDir:    ".flowgraph/store",
			SessionDir: ".flowgraph/sessions",
			KeyPrefix:  "flowgraph:session:",
		},
		Log:     Log{Level: "info", Format: "text"},
		Metrics: Metrics{Enabled: true},
	}
}

// Load reads path (when not empty) over the defaults, then applies the
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("ADDR", &cfg.Server.Addr)
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("DATABASE_URL", &cfg.Store.DatabaseURL)
	str("REDIS_URL", &cfg.Store.RedisURL)
	str("LOAM_DIR", &cfg.Store.LoamDir)
	str("SESSION_DIR", &cfg.Store.SessionDir)
	str("KEY_PREFIX", &cfg.Store.KeyPrefix)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("ENCRYPTION_KEY", &cfg.Encryption.Key)

	if v, ok := lookup(EnvPrefix + "SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sSESSION_TTL: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.Store.SessionTTL = d
	}
	if v, ok := lookup(EnvPrefix + "LOCK_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sLOCK_TTL: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.Store.LockTTL = d
	}
	if v, ok := lookup(EnvPrefix + "METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sMETRICS_ENABLED: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.Metrics.Enabled = b
	}
	if v, ok := lookup(EnvPrefix + "MASK_PATTERNS"); ok {
		cfg.Privacy.MaskPatterns = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the driver requirements and the log level.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverLoam:
		if c.Store.LoamDir == "" {
			return fmt.Errorf("%w: loam driver needs store.loamDir", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres driver needs store.databaseUrl", ErrInvalidConfig)
		}
	case DriverRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("%w: redis driver needs store.redisUrl", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Store.SessionTTL < 0 || c.Store.LockTTL < 0 {
		return fmt.Errorf("%w: negative ttl", ErrInvalidConfig)
	}
	return nil
}

// SlogLevel parses the configured level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, l.Level)
	}
	return level, nil
}
