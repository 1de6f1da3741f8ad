package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Telemetry TelemetryConfig
	Forecast  ForecastConfig
	Rollup    RollupConfig
	RateLimit RateLimitConfig
	Export    ExportConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
	AutoMigrate bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// QueueConfig holds task queue settings
type QueueConfig struct {
	Type          string // "memory" or "redis"
	ConsumerGroup string
	BatchSize     int
	BlockTimeout  time.Duration
	ClaimIdle     time.Duration // pending messages idle this long are redelivered
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// ForecastConfig controls the planning horizon
type ForecastConfig struct {
	HistoryDays     int
	ForecastHours   int
	StaffingHours   int
	SmoothByDefault bool
}

// RollupConfig controls when rollups get recomputed
type RollupConfig struct {
	Mode      string // "sync" or "async"
	MaxWindow time.Duration
}

// RateLimitConfig holds limits for write routes
type RateLimitConfig struct {
	Enabled       bool
	GlobalLimit   int
	UserLimit     int
	WindowSeconds int
}

// ExportConfig holds plan sink settings
type ExportConfig struct {
	Sink         string // console, kafka, parquet
	KafkaBrokers []string
	KafkaTopic   string
	OutputDir    string
	S3Bucket     string
	S3Prefix     string
	AWSRegion    string
}

// Load loads configuration from environment variables, reading .env first when present
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "forecaster"),
			User:        getEnv("POSTGRES_USER", "forecaster"),
			Password:    getEnv("POSTGRES_PASSWORD", "forecaster"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
			AutoMigrate: getEnvBool("POSTGRES_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 5*time.Minute),
		},
		Queue: QueueConfig{
			Type:          getEnv("QUEUE_TYPE", "memory"),
			ConsumerGroup: getEnv("QUEUE_CONSUMER_GROUP", "rollup_workers"),
			BatchSize:     getEnvInt("QUEUE_BATCH_SIZE", 10),
			BlockTimeout:  getEnvDuration("QUEUE_BLOCK_TIMEOUT", 1*time.Second),
			ClaimIdle:     getEnvDuration("QUEUE_CLAIM_IDLE", 30*time.Second),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", true),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
		Forecast: ForecastConfig{
			HistoryDays:     getEnvInt("FORECAST_HISTORY_DAYS", 28),
			ForecastHours:   getEnvInt("FORECAST_HOURS", 7*24),
			StaffingHours:   getEnvInt("STAFFING_HOURS", 24),
			SmoothByDefault: getEnvBool("STAFFING_SMOOTH", true),
		},
		Rollup: RollupConfig{
			Mode:      getEnv("ROLLUP_MODE", "sync"),
			MaxWindow: getEnvDuration("ROLLUP_MAX_WINDOW", 90*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", false),
			GlobalLimit:   getEnvInt("RATE_LIMIT_GLOBAL", 1000),
			UserLimit:     getEnvInt("RATE_LIMIT_USER", 100),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Export: ExportConfig{
			Sink:         getEnv("EXPORT_SINK", "console"),
			KafkaBrokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaTopic:   getEnv("KAFKA_PLAN_TOPIC", "staffing_plans"),
			OutputDir:    getEnv("EXPORT_OUTPUT_DIR", "./output"),
			S3Bucket:     getEnv("EXPORT_S3_BUCKET", ""),
			S3Prefix:     getEnv("EXPORT_S3_PREFIX", "plans"),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	switch c.Queue.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown queue type: %s", c.Queue.Type)
	}

	switch c.Rollup.Mode {
	case "sync", "async":
	default:
		return fmt.Errorf("unknown rollup mode: %s", c.Rollup.Mode)
	}

	if c.Forecast.HistoryDays < 1 {
		return fmt.Errorf("forecast history days must be positive")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
