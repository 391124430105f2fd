package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Suggestion cache backends.
const (
	SuggestCacheNone  = "none"
	SuggestCacheLRU   = "lru"
	SuggestCacheRedis = "redis"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	CORSAllowedOrigin  string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	SeedOnStart  bool
	SeedFile     string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Suggestion cache
	SuggestCache       string
	SuggestCacheTTL    time.Duration
	CacheRefreshPeriod time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "3003"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		CORSAllowedOrigin:  getEnv("CORS_ALLOWED_ORIGIN", "*"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expenses.db"),
		SeedOnStart:  getEnvBool("SEED_ON_START", true),
		SeedFile:     getEnv("SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "category_events"),

		SuggestCache:       getEnv("SUGGEST_CACHE", SuggestCacheLRU),
		SuggestCacheTTL:    getEnvDuration("SUGGEST_CACHE_TTL", 5*time.Minute),
		CacheRefreshPeriod: getEnvDuration("CACHE_REFRESH_INTERVAL", 10*time.Minute),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate collects every configuration problem into one error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("seed file is not readable: %s", c.SeedFile))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	validCaches := []string{SuggestCacheNone, SuggestCacheLRU, SuggestCacheRedis}
	if !slices.Contains(validCaches, c.SuggestCache) {
		errors = append(errors, fmt.Sprintf("invalid suggestion cache '%s': must be one of %v", c.SuggestCache, validCaches))
	}
	if c.SuggestCache != SuggestCacheNone && c.SuggestCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid suggestion cache TTL %v: must be at least 1 second", c.SuggestCacheTTL))
	}
	if c.SuggestCache == SuggestCacheRedis {
		if c.RedisAddr == "" {
			errors = append(errors, "Redis address is required when SUGGEST_CACHE=redis")
		}
		if c.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("invalid Redis DB %d: must not be negative", c.RedisDB))
		}
	}
	if c.CacheRefreshPeriod < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache refresh interval %v: must be at least 1 second", c.CacheRefreshPeriod))
	} else if c.CacheRefreshPeriod > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache refresh interval %v: must be at most 24 hours", c.CacheRefreshPeriod))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
