package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Pairing       PairingConfig
	Scheduler     SchedulerConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PairingConfig holds matching and penalty policy configuration
type PairingConfig struct {
	HistoryWeeks     int           // trailing window consulted to avoid repeat pairings
	PenaltyWeeks     int           // no-show penalty duration
	TotalSlots       int           // size of the labeled slot pool
	SlotPrefix       string        // slot label prefix, index is appended
	PresenceDebounce time.Duration // sustained co-presence required before auto-completion
}

// SchedulerConfig holds weekly scheduler configuration
type SchedulerConfig struct {
	TickInterval       time.Duration
	ReminderOffsetDays int // days after the signup day
	ReminderHour       int // reference-timezone hour
	ResetDayOfWeek     int // fixed weekly reset instant, independent of tenant schedules
	ResetHour          int
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "brewpair"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "brewpair"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Pairing: PairingConfig{
			HistoryWeeks:     parseInt("PAIRING_HISTORY_WEEKS", 12),
			PenaltyWeeks:     parseInt("PAIRING_PENALTY_WEEKS", 2),
			TotalSlots:       parseInt("PAIRING_TOTAL_SLOTS", 10),
			SlotPrefix:       getEnv("PAIRING_SLOT_PREFIX", "Coffee Chat VC "),
			PresenceDebounce: parseDuration("PAIRING_PRESENCE_DEBOUNCE", "5m"),
		},
		Scheduler: SchedulerConfig{
			TickInterval:       parseDuration("SCHEDULER_TICK_INTERVAL", "1m"),
			ReminderOffsetDays: parseInt("SCHEDULER_REMINDER_OFFSET_DAYS", 2),
			ReminderHour:       parseInt("SCHEDULER_REMINDER_HOUR", 10),
			ResetDayOfWeek:     parseInt("SCHEDULER_RESET_DAY", 0),
			ResetHour:          parseInt("SCHEDULER_RESET_HOUR", 23),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "brewpair"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Pairing.HistoryWeeks < 1 {
		return fmt.Errorf("PAIRING_HISTORY_WEEKS must be at least 1")
	}
	if c.Pairing.TotalSlots < 1 {
		return fmt.Errorf("PAIRING_TOTAL_SLOTS must be at least 1")
	}
	if c.Scheduler.ReminderHour < 0 || c.Scheduler.ReminderHour > 23 {
		return fmt.Errorf("SCHEDULER_REMINDER_HOUR must be in 0..23")
	}
	if c.Scheduler.ResetDayOfWeek < 0 || c.Scheduler.ResetDayOfWeek > 6 {
		return fmt.Errorf("SCHEDULER_RESET_DAY must be in 0..6")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
