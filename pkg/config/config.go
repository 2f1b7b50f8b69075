package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string
	Log       LogConfig

	// Monitoring
	MetricsEnabled bool

	// Guard (품질/리스크 엔진)
	Guard GuardConfig
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled bool
	URL     string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// LogConfig holds optional file output settings
type LogConfig struct {
	File       string // empty → stdout only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// GuardConfig holds the quality/risk engine runtime settings
type GuardConfig struct {
	SettingsPath    string // thresholds + sources YAML (optional)
	HistoryCapacity int

	MonitorInterval     time.Duration
	MonitorWorkers      int
	MonitorFetchTimeout time.Duration
	MonitorFetchRPS     float64

	DispatchQueueSize int
	DispatchWorkers   int
	CallbackTimeout   time.Duration

	AuditRetentionDays int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		Log: LogConfig{
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 14),
		},

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),

		// Guard
		Guard: GuardConfig{
			SettingsPath:        getEnv("GUARD_SETTINGS_PATH", ""),
			HistoryCapacity:     getEnvAsInt("GUARD_HISTORY_CAPACITY", 1000),
			MonitorInterval:     getEnvAsDuration("MONITOR_INTERVAL", "1m"),
			MonitorWorkers:      getEnvAsInt("MONITOR_WORKERS", 4),
			MonitorFetchTimeout: getEnvAsDuration("MONITOR_FETCH_TIMEOUT", "20s"),
			MonitorFetchRPS:     getEnvAsFloat("MONITOR_FETCH_RPS", 5),
			DispatchQueueSize:   getEnvAsInt("DISPATCH_QUEUE_SIZE", 256),
			DispatchWorkers:     getEnvAsInt("DISPATCH_WORKERS", 2),
			CallbackTimeout:     getEnvAsDuration("CALLBACK_TIMEOUT", "5s"),
			AuditRetentionDays:  getEnvAsInt("AUDIT_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required only when persistence is on
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_ENABLED=true")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Guard.HistoryCapacity <= 0 {
		return fmt.Errorf("GUARD_HISTORY_CAPACITY must be > 0")
	}
	if c.Guard.MonitorInterval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be > 0")
	}
	if c.Guard.MonitorWorkers <= 0 {
		return fmt.Errorf("MONITOR_WORKERS must be > 0")
	}
	if c.Guard.DispatchQueueSize <= 0 || c.Guard.DispatchWorkers <= 0 {
		return fmt.Errorf("DISPATCH_QUEUE_SIZE and DISPATCH_WORKERS must be > 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
