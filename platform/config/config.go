// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetMigrationsEnabled() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// AuthConfig provides settings for the optional admin token guard.
type AuthConfig interface {
	GetAdminJWTSecret() string
	IsAdminAuthEnabled() bool
}

// RateLimitConfig provides settings for the refresh endpoint limiter.
type RateLimitConfig interface {
	GetRefreshRatePerMinute() float64
	GetRefreshRateBurst() int
}

// UpstreamConfig provides settings for the statistics API client.
type UpstreamConfig interface {
	GetREEAPIURL() string
	GetREERequestTimeout() time.Duration
}

// SchedulerConfig provides settings for the background job queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetRefreshCron() string
	GetRefreshLocation() *time.Location
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	MigrationsEnabled    bool
	CORSAllowAll         bool
	CORSOrigins          []string
	AdminJWTSecret       string
	RefreshRatePerMinute float64
	RefreshRateBurst     int
	REEAPIURL            string
	REERequestTimeout    time.Duration
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	RefreshCron          string
	RefreshLocation      *time.Location
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetMigrationsEnabled() bool { return c.MigrationsEnabled }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// AuthConfig implementation
func (c *Config) GetAdminJWTSecret() string { return c.AdminJWTSecret }
func (c *Config) IsAdminAuthEnabled() bool  { return c.AdminJWTSecret != "" }

// RateLimitConfig implementation
func (c *Config) GetRefreshRatePerMinute() float64 { return c.RefreshRatePerMinute }
func (c *Config) GetRefreshRateBurst() int         { return c.RefreshRateBurst }

// UpstreamConfig implementation
func (c *Config) GetREEAPIURL() string                { return c.REEAPIURL }
func (c *Config) GetREERequestTimeout() time.Duration { return c.REERequestTimeout }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetRefreshCron() string             { return c.RefreshCron }
func (c *Config) GetRefreshLocation() *time.Location { return c.RefreshLocation }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	timeout, err := parseDuration("REE_REQUEST_TIMEOUT", getEnv("REE_REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, err
	}
	concurrency, err := parsePositiveInt("ASYNQ_CONCURRENCY", getEnv("ASYNQ_CONCURRENCY", "2"))
	if err != nil {
		return nil, err
	}
	burst, err := parsePositiveInt("REFRESH_RATE_LIMIT_BURST", getEnv("REFRESH_RATE_LIMIT_BURST", "2"))
	if err != nil {
		return nil, err
	}
	perMinute, err := strconv.ParseFloat(getEnv("REFRESH_RATE_LIMIT_PER_MINUTE", "6"), 64)
	if err != nil || perMinute <= 0 {
		return nil, fmt.Errorf("REFRESH_RATE_LIMIT_PER_MINUTE must be a positive number")
	}

	refreshCron := getEnv("REFRESH_CRON", "0 2 * * *")
	if _, err := cron.ParseStandard(refreshCron); err != nil {
		return nil, fmt.Errorf("REFRESH_CRON is invalid: %w", err)
	}
	location, err := time.LoadLocation(getEnv("REFRESH_TIMEZONE", "Europe/Madrid"))
	if err != nil {
		return nil, fmt.Errorf("REFRESH_TIMEZONE is invalid: %w", err)
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":3000"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		MigrationsEnabled:    strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		AdminJWTSecret:       getEnv("ADMIN_JWT_SECRET", ""),
		RefreshRatePerMinute: perMinute,
		RefreshRateBurst:     burst,
		REEAPIURL:            getEnv("REE_API_URL", "https://apidatos.ree.es/es/datos/balance/balance-electrico"),
		REERequestTimeout:    timeout,
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "balance"),
		AsynqConcurrency:     concurrency,
		RefreshCron:          refreshCron,
		RefreshLocation:      location,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.REEAPIURL == "" {
		return nil, fmt.Errorf("REE_API_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, value)
	}
	return d, nil
}

func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return n, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
