package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider names the backend serving a model. Each provider has its own
// request shape; the choice is made once, from the model table.
type Provider string

const (
	ProviderTogether Provider = "together"
	ProviderGoogle   Provider = "google"
)

func (p Provider) Valid() bool {
	return p == ProviderTogether || p == ProviderGoogle
}

type Config struct {
	Port string

	// Auth
	PagewrightAPIKey string

	// Oracle providers
	TogetherAPIKey  string
	TogetherBaseURL string
	GoogleAPIKey    string

	// Oracle requests
	DefaultModel      string
	OracleTimeout     time.Duration
	OracleMaxTokens   int
	OracleTemperature float64

	// Request limits
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int

	// LLM latency stats
	StatsWindow time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first without overriding variables already set.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		PagewrightAPIKey: os.Getenv("PAGEWRIGHT_API_KEY"),

		TogetherAPIKey:  os.Getenv("TOGETHER_API_KEY"),
		TogetherBaseURL: envOr("TOGETHER_BASE_URL", "https://api.together.xyz/v1"),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),

		DefaultModel:      envOr("DEFAULT_MODEL", "glm-4.5-air"),
		OracleTimeout:     envDuration("ORACLE_TIMEOUT", 120*time.Second),
		OracleMaxTokens:   envInt("ORACLE_MAX_TOKENS", 8192),
		OracleTemperature: envFloat("ORACLE_TEMPERATURE", 0.2),

		MaxBodyBytes:   envInt64("MAX_BODY_BYTES", 5242880), // 5MB
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 100),

		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),
	}

	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 120 * time.Second
	}
	if cfg.OracleMaxTokens <= 0 {
		cfg.OracleMaxTokens = 8192
	}
	if cfg.OracleTemperature < 0 {
		cfg.OracleTemperature = 0.2
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5242880
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

// Validate checks that at least one oracle provider can be reached.
func (c Config) Validate() error {
	if c.TogetherAPIKey == "" && c.GoogleAPIKey == "" {
		return fmt.Errorf("one of TOGETHER_API_KEY or GOOGLE_API_KEY is required")
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("DEFAULT_MODEL must not be empty")
	}
	return nil
}

// HasProvider reports whether credentials for p are configured.
func (c Config) HasProvider(p Provider) bool {
	switch p {
	case ProviderTogether:
		return c.TogetherAPIKey != ""
	case ProviderGoogle:
		return c.GoogleAPIKey != ""
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
