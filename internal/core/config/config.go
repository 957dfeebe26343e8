// Package config loads the layered (file + env) configuration for the
// fever-events read/ingest core, in the same shape as the teacher's
// internal/core/config package: koanf defaults, then a YAML file layer,
// then an env layer, unmarshalled into an immutable Config value built
// once at startup (spec.md §9: configuration is "reified as an immutable
// configuration value ... passed by value or shared reference").
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full recognized option set from spec.md §4.10.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Provider ProviderConfig `koanf:"provider"`
	Sync     SyncConfig     `koanf:"sync"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	DSN             string `koanf:"dsn"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	AcquireTimeoutS int    `koanf:"acquire_timeout_s"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// BucketStoreConfig holds the Redis bucket-store connection settings (component C).
type BucketStoreConfig struct {
	Addr         string `koanf:"addr"`
	DB           int    `koanf:"db"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// CacheConfig corresponds to the `cache.*` keys in §4.10.
type CacheConfig struct {
	KeyPrefix            string            `koanf:"key_prefix"`
	TTLHours             int               `koanf:"ttl_hours"`
	CurrentMonthTTLHours int               `koanf:"current_month_ttl_hours"`
	LongTermTTLHours     int               `koanf:"long_term_ttl_hours"`
	EnableTieredTTL      bool              `koanf:"enable_tiered_ttl"`
	MaxMonthsPerQuery    int               `koanf:"max_months_per_query"`
	Redis                BucketStoreConfig `koanf:"redis"`
}

// ProviderConfig corresponds to the `provider.*` keys in §4.10.
type ProviderConfig struct {
	BaseURL   string        `koanf:"base_url"`
	TimeoutMs int           `koanf:"timeout_ms"`
	Retry     RetryConfig   `koanf:"retry"`
	Breaker   BreakerConfig `koanf:"breaker"`
}

type RetryConfig struct {
	MaxAttempts int     `koanf:"max_attempts"`
	WaitMs      int     `koanf:"wait_ms"`
	Multiplier  float64 `koanf:"multiplier"`
}

type BreakerConfig struct {
	Window         int `koanf:"window"`
	ThresholdPct   int `koanf:"threshold_pct"`
	MinCalls       int `koanf:"min_calls"`
	OpenMs         int `koanf:"open_ms"`
	HalfOpenProbes int `koanf:"half_open_probes"`
}

// SyncConfig corresponds to the `sync.*` keys in §4.10.
type SyncConfig struct {
	Enabled    bool `koanf:"enabled"`
	IntervalMs int  `koanf:"interval_ms"`
}

// Validate checks every invariant implied by §4.10's defaults and ranges,
// one `if` per field, matching the teacher's Config.Validate() style.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}
	if c.Database.AcquireTimeoutS <= 0 {
		return fmt.Errorf("database.acquire_timeout_s must be > 0")
	}

	if strings.TrimSpace(c.Cache.KeyPrefix) == "" {
		return fmt.Errorf("cache.key_prefix is required")
	}
	if c.Cache.TTLHours <= 0 {
		return fmt.Errorf("cache.ttl_hours must be > 0")
	}
	if c.Cache.CurrentMonthTTLHours <= 0 {
		return fmt.Errorf("cache.current_month_ttl_hours must be > 0")
	}
	if c.Cache.LongTermTTLHours <= 0 {
		return fmt.Errorf("cache.long_term_ttl_hours must be > 0")
	}
	if c.Cache.MaxMonthsPerQuery <= 0 {
		return fmt.Errorf("cache.max_months_per_query must be > 0")
	}
	if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return fmt.Errorf("cache.redis.addr is required")
	}
	if c.Cache.Redis.PoolSize <= 0 {
		return fmt.Errorf("cache.redis.pool_size must be > 0")
	}

	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.TimeoutMs <= 0 {
		return fmt.Errorf("provider.timeout_ms must be > 0")
	}
	if c.Provider.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("provider.retry.max_attempts must be > 0")
	}
	if c.Provider.Retry.WaitMs <= 0 {
		return fmt.Errorf("provider.retry.wait_ms must be > 0")
	}
	if c.Provider.Retry.Multiplier <= 1.0 {
		return fmt.Errorf("provider.retry.multiplier must be > 1.0")
	}
	if c.Provider.Breaker.Window <= 0 {
		return fmt.Errorf("provider.breaker.window must be > 0")
	}
	if c.Provider.Breaker.ThresholdPct <= 0 || c.Provider.Breaker.ThresholdPct > 100 {
		return fmt.Errorf("provider.breaker.threshold_pct must be in (0,100]")
	}
	if c.Provider.Breaker.MinCalls <= 0 {
		return fmt.Errorf("provider.breaker.min_calls must be > 0")
	}
	if c.Provider.Breaker.OpenMs <= 0 {
		return fmt.Errorf("provider.breaker.open_ms must be > 0")
	}
	if c.Provider.Breaker.HalfOpenProbes <= 0 {
		return fmt.Errorf("provider.breaker.half_open_probes must be > 0")
	}

	if c.Sync.IntervalMs <= 0 {
		return fmt.Errorf("sync.interval_ms must be > 0")
	}

	return nil
}

// Load parses config from file + env, in that priority order, then validates it.
// Mirrors the teacher's Load(): defaults seeded first, then file.Provider,
// then env.Provider with prefix-stripping and "__" -> "." flattening.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                        8080,
		"server.host":                        "0.0.0.0",
		"server.mode":                        "release",
		"database.dsn":                       "postgres://localhost:5432/fever_events?sslmode=disable",
		"database.max_open_conns":            20,
		"database.max_idle_conns":            5,
		"database.acquire_timeout_s":         30,
		"database.auto_migrate":              true,
		"cache.key_prefix":                   "fever:events:month:",
		"cache.ttl_hours":                    6,
		"cache.current_month_ttl_hours":      2,
		"cache.long_term_ttl_hours":          168,
		"cache.enable_tiered_ttl":            true,
		"cache.max_months_per_query":         24,
		"cache.redis.addr":                   "localhost:6379",
		"cache.redis.db":                     0,
		"cache.redis.pool_size":              20,
		"cache.redis.min_idle_conns":         5,
		"provider.base_url":                  "https://provider.example.com",
		"provider.timeout_ms":                10000,
		"provider.retry.max_attempts":        3,
		"provider.retry.wait_ms":             2000,
		"provider.retry.multiplier":          2.0,
		"provider.breaker.window":            10,
		"provider.breaker.threshold_pct":     50,
		"provider.breaker.min_calls":         5,
		"provider.breaker.open_ms":           30000,
		"provider.breaker.half_open_probes":  3,
		"sync.enabled":                       true,
		"sync.interval_ms":                   30000,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("FEVER_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "FEVER_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
