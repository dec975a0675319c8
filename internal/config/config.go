// Package config loads the module's YAML configuration surface and
// overlays it onto a hardcoded default.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration surface.
type Config struct {
	MonitoredVenues             []string      `yaml:"monitored_venues"`
	MonitoredPairs               []string      `yaml:"monitored_pairs"`
	DetectionIntervalSeconds     int           `yaml:"detection_interval_seconds"`
	OpportunityTTLSeconds        int           `yaml:"opportunity_ttl_seconds"`
	ThresholdBps                 float64       `yaml:"threshold_bps"`
	MaxRecipientsPerOpportunity  int           `yaml:"max_recipients_per_opportunity"`
	Fairness                     Fairness      `yaml:"fairness"`
	RateLimitTable               []RouteLimit  `yaml:"rate_limit_table"`
	EncryptionKeyRef             string        `yaml:"encryption_key_ref"`
	LogLevel                     string        `yaml:"log_level"`
	Store                        StoreConfig   `yaml:"store"`
}

// Fairness holds the distribution engine's fairness parameters.
type Fairness struct {
	PerBurst         int                `yaml:"per_burst"`
	PerDay           int                `yaml:"per_day"`
	CooldownSeconds  int                `yaml:"cooldown_seconds"`
	TierMultipliers  map[string]float64 `yaml:"tier_multipliers"`
	ActivityBoost    float64            `yaml:"activity_boost"`
	GroupMultiplier  float64            `yaml:"group_multiplier"`
}

// RouteLimit is one row of the per-route rate-limit table.
type RouteLimit struct {
	Pattern        string `yaml:"pattern"`
	Method         string `yaml:"method"` // empty means all methods
	LimitPerMinute int    `yaml:"limit_per_minute"`
}

// StoreConfig carries connection info for the KV and relational stores.
type StoreConfig struct {
	RedisAddr   string `yaml:"redis_addr"`
	DatabaseURL string `yaml:"database_url"`
}

// Default returns the configuration baseline used when no file is
// supplied, and as the base merged with a loaded file.
func Default() Config {
	return Config{
		MonitoredVenues:            []string{"binance", "okx", "kraken", "coinbase"},
		MonitoredPairs:             []string{"BTC-USD-PERP", "ETH-USD-PERP"},
		DetectionIntervalSeconds:   30,
		OpportunityTTLSeconds:      300,
		ThresholdBps:               5,
		MaxRecipientsPerOpportunity: 500,
		Fairness: Fairness{
			PerBurst:        2,
			PerDay:          10,
			CooldownSeconds: 4 * 60 * 60,
			TierMultipliers: map[string]float64{
				"Free": 1.0, "Premium": 1.5, "Auto": 2.0, "Enterprise": 3.0,
			},
			ActivityBoost:   1.2,
			GroupMultiplier: 1.0,
		},
		RateLimitTable: []RouteLimit{
			{Pattern: "/health", Method: "GET", LimitPerMinute: 300},
			{Pattern: "/api/*", LimitPerMinute: 60},
			{Pattern: "/webhook/*", LimitPerMinute: 120},
			{Pattern: "/admin/*", Method: "GET", LimitPerMinute: 30},
			{Pattern: "/admin/*", Method: "POST", LimitPerMinute: 20},
			{Pattern: "/assets/*", LimitPerMinute: 300},
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file at path and overlays it on Default(). A missing
// path is not an error — Default() is returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if overrides := os.Getenv("REDIS_ADDR"); overrides != "" {
		cfg.Store.RedisAddr = overrides
	}
	if overrides := os.Getenv("DATABASE_URL"); overrides != "" {
		cfg.Store.DatabaseURL = overrides
	}
	if overrides := os.Getenv("ENCRYPTION_KEY_REF"); overrides != "" {
		cfg.EncryptionKeyRef = overrides
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration invariants that other components
// rely on holding before startup proceeds.
func (c Config) Validate() error {
	if c.DetectionIntervalSeconds < 5 {
		return fmt.Errorf("detection_interval_seconds must be >= 5, got %d", c.DetectionIntervalSeconds)
	}
	if c.OpportunityTTLSeconds < 60 {
		return fmt.Errorf("opportunity_ttl_seconds must be >= 60, got %d", c.OpportunityTTLSeconds)
	}
	if c.ThresholdBps < 0 {
		return fmt.Errorf("threshold_bps must be non-negative, got %f", c.ThresholdBps)
	}
	if c.MaxRecipientsPerOpportunity <= 0 {
		return fmt.Errorf("max_recipients_per_opportunity must be positive, got %d", c.MaxRecipientsPerOpportunity)
	}
	if len(c.MonitoredVenues) < 2 {
		return fmt.Errorf("at least two monitored_venues are required for cross-venue pairing")
	}
	return nil
}
