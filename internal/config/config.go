package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Backend selection: "rest" talks to the savings API, "memory" keeps
	// everything in process.
	Backend string

	// REST client
	APIURL          string
	HTTPTimeout     time.Duration
	MaxConcurrent   int
	MaxConnsPerHost int
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	RateLimit       float64

	// Retry
	RetryAttempts int
	RetryDelay    time.Duration

	// Snapshot cache
	CacheTTL        time.Duration
	CacheSize       int
	SnapshotDBPath  string
	RefreshInterval time.Duration

	// AMQP events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Stub backend
	DevServerPort      string
	DevServerWriteRate int
	SeedFile           string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Backend: getEnv("SAVINGS_BACKEND", "rest"),

		APIURL:          getEnv("SAVINGS_API_URL", "http://localhost:3000/"),
		HTTPTimeout:     getEnvDuration("SAVINGS_HTTP_TIMEOUT", 30*time.Second),
		MaxConcurrent:   getEnvInt("SAVINGS_MAX_CONCURRENT", 20),
		MaxConnsPerHost: getEnvInt("SAVINGS_MAX_CONNS_PER_HOST", 10),
		MaxIdleConns:    getEnvInt("SAVINGS_MAX_IDLE_CONNS", 5),
		IdleConnTimeout: getEnvDuration("SAVINGS_IDLE_CONN_TIMEOUT", 5*time.Minute),
		RateLimit:       getEnvFloat("SAVINGS_RATE_LIMIT", 0),

		RetryAttempts: getEnvInt("SAVINGS_RETRY_ATTEMPTS", 3),
		RetryDelay:    getEnvDuration("SAVINGS_RETRY_DELAY", 500*time.Millisecond),

		CacheTTL:        getEnvDuration("SAVINGS_CACHE_TTL", 2*time.Minute),
		CacheSize:       getEnvInt("SAVINGS_CACHE_SIZE", 64),
		SnapshotDBPath:  getEnv("SAVINGS_SNAPSHOT_DB", ""),
		RefreshInterval: getEnvDuration("SAVINGS_REFRESH_INTERVAL", 30*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "savings"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "savings_events"),

		DevServerPort:      getEnv("DEVSERVER_PORT", "3000"),
		DevServerWriteRate: getEnvInt("DEVSERVER_WRITE_RATE", 0),
		SeedFile:           getEnv("SAVINGS_SEED_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{"rest", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.Backend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid backend '%s': must be one of %v", c.Backend, validBackends))
	}

	if c.Backend == "rest" {
		if parsedURL, err := url.Parse(c.APIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		} else if parsedURL.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid API URL '%s': missing host", c.APIURL))
		}
	}

	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	}
	if c.MaxConcurrent < 1 {
		errors = append(errors, fmt.Sprintf("invalid max concurrent requests %d: must be at least 1", c.MaxConcurrent))
	}
	if c.MaxConnsPerHost < 1 {
		errors = append(errors, fmt.Sprintf("invalid max connections per host %d: must be at least 1", c.MaxConnsPerHost))
	}
	if c.MaxIdleConns < 0 {
		errors = append(errors, fmt.Sprintf("invalid max idle connections %d: cannot be negative", c.MaxIdleConns))
	}
	if c.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: cannot be negative", c.RateLimit))
	}

	if c.RetryAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid retry attempts %d: must be at least 1", c.RetryAttempts))
	} else if c.RetryAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid retry attempts %d: must be at most 10", c.RetryAttempts))
	}
	if c.RetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid retry delay %v: cannot be negative", c.RetryDelay))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}
	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if c.SnapshotDBPath != "" {
		dir := filepath.Dir(c.SnapshotDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create snapshot database directory '%s': %v", dir, err))
				}
			}
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

	if port, err := strconv.Atoi(c.DevServerPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.DevServerPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DevServerWriteRate < 0 {
		errors = append(errors, fmt.Sprintf("invalid dev server write rate %d: cannot be negative", c.DevServerWriteRate))
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
