package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection: memory, sqlite, postgres or sheets
	DataBackend string

	// Memory backend
	SeedFile string

	// Database
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP
	AMQPURL         string
	AMQPExchange    string
	AMQPQueue       string
	AMQPResultQueue string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleFactsSheetName      string
	GoogleCategoriesSheetName string

	// Calculation
	FactsCacheSize    int
	FactsCacheTTL     time.Duration
	ReportParallelism int

	// HTTP rate limiting, requests per minute per client
	RateLimitRPM int
}

var validBackends = []string{"memory", "sqlite", "postgres", "sheets"}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		SeedFile:    getEnv("SEED_FILE", "./data/seed.toml"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/pnl.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "pnl"),
		AMQPQueue:       getEnv("AMQP_QUEUE", "report_requests"),
		AMQPResultQueue: getEnv("AMQP_RESULT_QUEUE", "report_results"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleFactsSheetName:      getEnv("GOOGLE_FACTS_SHEET_NAME", "Facts"),
		GoogleCategoriesSheetName: getEnv("GOOGLE_CATEGORIES_SHEET_NAME", "Categories"),

		FactsCacheSize:    getEnvInt("FACTS_CACHE_SIZE", 4096),
		FactsCacheTTL:     getEnvDuration("FACTS_CACHE_TTL", 30*time.Second),
		ReportParallelism: getEnvInt("REPORT_PARALLELISM", 1),

		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 120),
	}
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	switch c.DataBackend {
	case "memory":
		if c.SeedFile != "" {
			if _, err := os.Stat(c.SeedFile); err != nil {
				errors = append(errors, fmt.Sprintf("seed file '%s' is not readable: %v", c.SeedFile, err))
			}
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleFactsSheetName == "" || c.GoogleCategoriesSheetName == "" {
			errors = append(errors, "Google facts and categories sheet names are required when using sheets backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" || c.AMQPResultQueue == "" {
			errors = append(errors, "AMQP exchange, queue and result queue names cannot be empty when AMQP URL is provided")
		}
	}

	if c.FactsCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid facts cache size %d: must not be negative", c.FactsCacheSize))
	}
	if c.FactsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid facts cache TTL %v: must not be negative", c.FactsCacheTTL))
	}
	if c.ReportParallelism < 1 || c.ReportParallelism > 64 {
		errors = append(errors, fmt.Sprintf("invalid report parallelism %d: must be between 1 and 64", c.ReportParallelism))
	}
	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// FactsCacheEnabled reports whether lookups should go through the burst cache.
func (c *Config) FactsCacheEnabled() bool {
	return c.FactsCacheSize > 0 && c.FactsCacheTTL > 0
}

// AMQPEnabled reports whether a broker is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// ParseLogLevel maps debug/info/warn/error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
