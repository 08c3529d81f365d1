package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/atlasargan/backend-store/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	AdminToken         string

	// Fallback shipping policy used when no enabled rule is configured for
	// a class. Single source for the flat fee and free-shipping threshold.
	FallbackShippingFee      pricing.Money
	FallbackFreeOverSubtotal pricing.Money

	RuleCacheTTL    time.Duration
	GuestCacheTTL   time.Duration
	PromoRefreshTTL time.Duration

	// QuoteRateLimit uses the limiter formatted syntax, e.g. "120-M".
	QuoteRateLimit string
}

// Fallback returns the configured fallback policy for the pricing engine.
func (c *Config) Fallback() pricing.Fallback {
	return pricing.Fallback{
		BaseFee:          c.FallbackShippingFee,
		FreeOverSubtotal: c.FallbackFreeOverSubtotal,
	}
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	defaults := pricing.DefaultFallback()
	cfg := &Config{
		AppEnv:                   valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                     valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:              k.String("DATABASE_URL"),
		RedisURL:                 k.String("REDIS_URL"),
		CORSAllowedOrigins:       splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		AdminToken:               strings.TrimSpace(k.String("ADMIN_TOKEN")),
		FallbackShippingFee:      parseMoney(k.String("PRICING_FALLBACK_FEE"), defaults.BaseFee),
		FallbackFreeOverSubtotal: parseMoney(k.String("PRICING_FALLBACK_FREE_OVER"), defaults.FreeOverSubtotal),
		RuleCacheTTL:             parseDuration(k.String("SHIPPING_RULE_CACHE_TTL"), "5m"),
		GuestCacheTTL:            parseDuration(k.String("GUEST_CACHE_TTL"), "1m"),
		PromoRefreshTTL:          parseDuration(k.String("PROMO_REFRESH_TTL"), "1m"),
		QuoteRateLimit:           valueOrDefault(k.String("QUOTE_RATE_LIMIT"), "120-M"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseMoney(value string, fallback pricing.Money) pricing.Money {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
