// Package config loads the texturelend engine daemon's process
// configuration from a TOML file on disk, writing a default file the first
// time it is run against a config path that does not exist yet.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config captures the runtime settings for the lending engine process.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Env           string `toml:"Env"`

	RateLimit RateLimitConfig `toml:"RateLimit"`
	Otel      OtelConfig      `toml:"Otel"`
	Global    Global          `toml:"Global"`
}

// RateLimitConfig configures the orchestrator's per-account token bucket.
type RateLimitConfig struct {
	EventsPerSecond float64 `toml:"EventsPerSecond"`
	Burst           int     `toml:"Burst"`
}

// OtelConfig configures the OTLP exporters used by observability/otel.
type OtelConfig struct {
	Enabled        bool   `toml:"Enabled"`
	Endpoint       string `toml:"Endpoint"`
	Insecure       bool   `toml:"Insecure"`
	HeaderListCSV  string `toml:"Headers"`
	ServiceVersion string `toml:"ServiceVersion"`
}

// Load reads the TOML configuration from path, creating a default file the
// first time it is run against a fresh path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault writes and returns a conservative default configuration.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":50074",
		DataDir:       "./texturelend-data",
		Env:           "development",
		RateLimit:     RateLimitConfig{EventsPerSecond: 5, Burst: 10},
		Global:        defaultGlobal(),
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create default config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":50074"
	}
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = "./texturelend-data"
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = "development"
	}
}

func (cfg *Config) validate() error {
	if cfg.RateLimit.EventsPerSecond < 0 {
		return fmt.Errorf("ratelimit: events per second must be non-negative")
	}
	if cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("ratelimit: burst must be non-negative")
	}
	if cfg.Otel.Enabled && strings.TrimSpace(cfg.Otel.Endpoint) == "" {
		return fmt.Errorf("otel: endpoint required when enabled")
	}
	if err := cfg.Global.validate(); err != nil {
		return fmt.Errorf("global: %w", err)
	}
	return nil
}
