package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds everything both processes (api and worker) need. Values come
// from an optional yaml/json file, overridden by DISPATCHD_* environment
// variables ("__" maps to nesting, none of these keys nest today).
type Config struct {
	RedisURL    string `json:"redis_url"`
	DatabaseURL string `json:"database_url"`
	HTTPAddr    string `json:"http_addr"`

	// Consumer is this process's name inside its consumer group. Empty means
	// a generated one.
	Consumer string `json:"consumer"`

	BlockMs   int `json:"block_ms"`
	BackoffMs int `json:"backoff_ms"`

	OptimizeRatePerSec float64 `json:"optimize_rate_per_sec"`
	OptimizeBurst      int     `json:"optimize_burst"`
}

func (c *Config) SetDefaults() {
	if c.RedisURL == "" {
		c.RedisURL = "redis://localhost:6379"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":5052"
	}
	if c.BlockMs <= 0 {
		c.BlockMs = 5000
	}
	if c.BackoffMs <= 0 {
		c.BackoffMs = 1000
	}
	if c.OptimizeRatePerSec <= 0 {
		c.OptimizeRatePerSec = 5
	}
	if c.OptimizeBurst <= 0 {
		c.OptimizeBurst = 10
	}
}

func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return errors.New("redis_url is required")
	}
	return nil
}

// ConsumerName is this process's identity inside its consumer groups. It must
// be stable across restarts: reclaim on startup only reads the consumer's own
// pending entries, and a name that changes on every boot would strand any
// message read but never acknowledged before a crash. Derived from the
// hostname when not configured.
func (c *Config) ConsumerName() string {
	if c.Consumer != "" {
		return c.Consumer
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "worker"
	}
	return "worker-" + host
}

// Block is the bounded wait used on stream reads.
func (c *Config) Block() time.Duration { return time.Duration(c.BlockMs) * time.Millisecond }

// Backoff is the pause after a loop-level error.
func (c *Config) Backoff() time.Duration { return time.Duration(c.BackoffMs) * time.Millisecond }

// Load reads the config file at path (yaml or json) and applies environment
// overrides. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider("DISPATCHD_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "dispatchd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
