// Package config loads the CLI layer's configuration from environment
// variables. The library itself takes option structs and never reads the
// environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the gleaner CLI.
type Config struct {
	Browser BrowserConfig
	Retry   RetryConfig
	Cache   CacheConfig
	Log     LogConfig
}

// BrowserConfig controls the browser-backed dynamic fetcher.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path.
	Bin string

	// Proxy is the proxy URL for all requests, static and browser.
	Proxy string

	// Stealth injects stealth JS to mask automation markers.
	Stealth bool // default: false
}

// RetryConfig bounds retried page reads.
type RetryConfig struct {
	// Timeout is the total retry budget per read.
	Timeout time.Duration // default: 10s

	// PollInterval is the sleep between retry attempts.
	PollInterval time.Duration // default: 500ms
}

// CacheConfig controls the static fetch body cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached bodies.
	MaxEntries int // default: 1000

	// TTL is how long a cached body is served before re-fetching.
	TTL time.Duration // default: 5m
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:  envBoolOr("GLEANER_HEADLESS", true),
			NoSandbox: envBoolOr("GLEANER_NO_SANDBOX", false),
			Bin:       os.Getenv("GLEANER_BROWSER_BIN"),
			Proxy:     os.Getenv("GLEANER_PROXY"),
			Stealth:   envBoolOr("GLEANER_STEALTH", false),
		},
		Retry: RetryConfig{
			Timeout:      envDurationOr("GLEANER_RETRY_TIMEOUT", 10*time.Second),
			PollInterval: envDurationOr("GLEANER_POLL_INTERVAL", 500*time.Millisecond),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("GLEANER_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("GLEANER_CACHE_TTL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  envOr("GLEANER_LOG_LEVEL", "info"),
			Format: envOr("GLEANER_LOG_FORMAT", "text"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
