// Package config provides configuration management for erbgo.
// It loads settings from environment variables with sensible defaults and
// validates them before the engine or the preview server start.
//
// Environment Variables:
//
// Engine Settings:
//   - ERB_LANGUAGE: Evaluator language - "js", "lua" or "expr" (default: js)
//   - ERB_TRIM_MODE: ERB trim mode, e.g. ">", "<>", "-", "%<>" (default: none)
//   - ERB_ACCUMULATOR: Name of the generated output variable (default: _erbout)
//   - ERB_ISOLATION: Isolation level 0-2 or none/restricted/strict (default: 0)
//   - ERB_MAX_WORKERS: Concurrent isolated renders (default: 8)
//   - ERB_CACHE_TEMPLATES: Cache compiled programs (default: true)
//   - ERB_CACHE_TTL: Compiled program cache lifetime (default: 5m)
//   - ERB_MAX_TEMPLATE_SIZE: Largest accepted template in bytes (default: 1048576)
//
// Preview Server:
//   - ERB_SERVE_ADDR: Listen address (default: :8080)
//   - ERB_TEMPLATE_DIR: Directory of *.erb templates (default: templates)
//   - ERB_RATE_LIMIT_RPS: Requests per second per client, 0 disables (default: 0)
//   - ERB_RATE_LIMIT_BURST: Burst size per client (default: 20)
//
// Logging:
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path, stderr when empty
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
//
//	engineConfig, err := cfg.EngineConfig()
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"erbgo/internal/common/errors"
	"erbgo/internal/engine"
	"erbgo/internal/evaluator"
)

// Config holds all configuration values. String fields hold the raw
// environment values; Validate checks that they parse.
type Config struct {
	// Engine settings
	Language        string `validate:"required"`
	TrimMode        string
	Accumulator     string `validate:"required"`
	Isolation       string
	MaxWorkers      string `validate:"required,number"`
	CacheTemplates  bool
	CacheTTL        string `validate:"required"`
	MaxTemplateSize string `validate:"required,number"`

	// Preview server
	ServeAddr      string `validate:"required"`
	TemplateDir    string `validate:"required"`
	RateLimitRPS   string `validate:"required,number"`
	RateLimitBurst string `validate:"required,number"`

	// Logging
	LogLevel string `validate:"required,oneof=debug info warn warning error"`
	LogFile  string
}

var validate = validator.New()

// Load creates a Config from environment variables, using defaults for
// anything unset. It does not validate.
func Load() *Config {
	return &Config{
		Language:        getEnv("ERB_LANGUAGE", "js"),
		TrimMode:        getEnv("ERB_TRIM_MODE", ""),
		Accumulator:     getEnv("ERB_ACCUMULATOR", "_erbout"),
		Isolation:       getEnv("ERB_ISOLATION", "0"),
		MaxWorkers:      getEnv("ERB_MAX_WORKERS", "8"),
		CacheTemplates:  getBoolEnv("ERB_CACHE_TEMPLATES", true),
		CacheTTL:        getEnv("ERB_CACHE_TTL", "5m"),
		MaxTemplateSize: getEnv("ERB_MAX_TEMPLATE_SIZE", "1048576"),

		ServeAddr:      getEnv("ERB_SERVE_ADDR", ":8080"),
		TemplateDir:    getEnv("ERB_TEMPLATE_DIR", "templates"),
		RateLimitRPS:   getEnv("ERB_RATE_LIMIT_RPS", "0"),
		RateLimitBurst: getEnv("ERB_RATE_LIMIT_BURST", "20"),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// getEnv retrieves an environment variable or returns defaultValue when it
// is unset or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts the strconv.ParseBool spellings and falls back to
// defaultValue for anything else.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks required fields with struct tags, then that every value
// parses and is in range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.ConfigError(fmt.Sprintf("invalid configuration: %v", err))
	}

	if evaluator.Canonical(c.Language) == "" {
		return errors.ConfigError(fmt.Sprintf("ERB_LANGUAGE must be one of %s", strings.Join(evaluator.Languages, ", ")))
	}

	if _, err := engine.ParseOptions(c.TrimMode, c.Isolation, c.Accumulator); err != nil {
		return errors.ConfigError(fmt.Sprintf("ERB_TRIM_MODE/ERB_ISOLATION: %v", err))
	}

	if workers, err := strconv.Atoi(c.MaxWorkers); err != nil || workers < 1 || workers > 1024 {
		return errors.ConfigError("ERB_MAX_WORKERS must be a number between 1 and 1024")
	}

	if ttl, err := time.ParseDuration(c.CacheTTL); err != nil || ttl < 0 {
		return errors.ConfigError("ERB_CACHE_TTL must be a valid duration (e.g., '5m', '1h')")
	}

	if size, err := strconv.Atoi(c.MaxTemplateSize); err != nil || size < 1 {
		return errors.ConfigError("ERB_MAX_TEMPLATE_SIZE must be a positive number")
	}

	if _, port, err := net.SplitHostPort(c.ServeAddr); err != nil || port == "" {
		return errors.ConfigError("ERB_SERVE_ADDR must be a host:port address (e.g., ':8080')")
	}

	if rps, err := strconv.Atoi(c.RateLimitRPS); err != nil || rps < 0 {
		return errors.ConfigError("ERB_RATE_LIMIT_RPS must be zero or a positive number")
	}

	if burst, err := strconv.Atoi(c.RateLimitBurst); err != nil || burst < 1 {
		return errors.ConfigError("ERB_RATE_LIMIT_BURST must be a positive number")
	}

	return nil
}

// EngineConfig converts the engine settings. Call Validate first.
func (c *Config) EngineConfig() (*engine.EngineConfig, error) {
	workers, err := strconv.Atoi(c.MaxWorkers)
	if err != nil {
		return nil, errors.ConfigError("ERB_MAX_WORKERS is not a number")
	}
	ttl, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return nil, errors.ConfigError("ERB_CACHE_TTL is not a duration")
	}
	size, err := strconv.Atoi(c.MaxTemplateSize)
	if err != nil {
		return nil, errors.ConfigError("ERB_MAX_TEMPLATE_SIZE is not a number")
	}

	return &engine.EngineConfig{
		MaxTemplateSize: size,
		CacheTemplates:  c.CacheTemplates,
		CacheTTL:        ttl,
		MaxWorkers:      workers,
	}, nil
}

// CompileOptions returns the default compile options for templates.
func (c *Config) CompileOptions() (engine.Options, error) {
	return engine.ParseOptions(c.TrimMode, c.Isolation, c.Accumulator)
}

// RateLimit returns the per-client request rate and burst for the preview
// server. A rate of 0 means no limit.
func (c *Config) RateLimit() (int, int) {
	rps, err := strconv.Atoi(c.RateLimitRPS)
	if err != nil || rps < 0 {
		rps = 0
	}
	burst, err := strconv.Atoi(c.RateLimitBurst)
	if err != nil || burst < 1 {
		burst = 1
	}
	return rps, burst
}
