package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Definition storage
	Storage StorageConfig

	// Evaluation engine
	Engine EngineConfig

	// Price data
	Prices PricesConfig

	// Services
	Scanner ScannerConfig
	API     APIConfig
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// StorageConfig selects where column and filter definitions are kept
type StorageConfig struct {
	Backend   string // "memory", "redis" or "postgres"
	Namespace string
	SeedFile  string // optional YAML merged into the stored sets on startup
	Notify    bool   // publish definition changes over redis
}

// EngineConfig holds evaluation engine settings
type EngineConfig struct {
	MaxDepth      int
	Workers       int
	CacheMaxItems int // 0 means unbounded
}

// PricesConfig holds price API client configuration
type PricesConfig struct {
	BaseURL      string
	UserAgent    string
	RateLimitRPS float64
	Timeout      time.Duration
	UseMock      bool
}

// ScannerConfig holds refresh loop configuration
type ScannerConfig struct {
	HealthCheckPort int
	RefreshInterval time.Duration
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port            int
	RefreshInterval time.Duration
	RateLimitRPS    float64 // per client, 0 disables limiting
	RateLimitBurst  int
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "flip_finder"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		Storage: StorageConfig{
			Backend:   strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
			Namespace: getEnv("STORAGE_NAMESPACE", "flip-finder"),
			SeedFile:  getEnv("STORAGE_SEED_FILE", ""),
			Notify:    getEnvAsBool("STORAGE_NOTIFY", false),
		},
		Engine: EngineConfig{
			MaxDepth:      getEnvAsInt("ENGINE_MAX_DEPTH", 10),
			Workers:       getEnvAsInt("ENGINE_WORKERS", 8),
			CacheMaxItems: getEnvAsInt("ENGINE_CACHE_MAX", 0),
		},
		Prices: PricesConfig{
			BaseURL:      getEnv("PRICES_BASE_URL", "https://prices.runescape.wiki/api/v1/osrs"),
			UserAgent:    getEnv("PRICES_USER_AGENT", "flip-finder - price scanner"),
			RateLimitRPS: getEnvAsFloat("PRICES_RATE_LIMIT_RPS", 2),
			Timeout:      getEnvAsDuration("PRICES_TIMEOUT", 15*time.Second),
			UseMock:      getEnvAsBool("PRICES_USE_MOCK", false),
		},
		Scanner: ScannerConfig{
			HealthCheckPort: getEnvAsInt("SCANNER_HEALTH_PORT", 8087),
			RefreshInterval: getEnvAsDuration("SCANNER_REFRESH_INTERVAL", 60*time.Second),
		},
		API: APIConfig{
			Port:            getEnvAsInt("API_PORT", 8090),
			RefreshInterval: getEnvAsDuration("API_REFRESH_INTERVAL", 60*time.Second),
			RateLimitRPS:    getEnvAsFloat("API_RATE_LIMIT_RPS", 20),
			RateLimitBurst:  getEnvAsInt("API_RATE_LIMIT_BURST", 40),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required for the redis storage backend")
		}
	case StoragePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for the postgres storage backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, redis, postgres, got %q", c.Storage.Backend)
	}
	if c.Storage.Notify && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required when STORAGE_NOTIFY is set")
	}
	if c.Storage.Namespace == "" {
		return fmt.Errorf("STORAGE_NAMESPACE cannot be empty")
	}
	if c.Engine.MaxDepth < 1 {
		return fmt.Errorf("ENGINE_MAX_DEPTH must be at least 1")
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("ENGINE_WORKERS must be at least 1")
	}
	if c.Engine.CacheMaxItems < 0 {
		return fmt.Errorf("ENGINE_CACHE_MAX cannot be negative")
	}
	if !c.Prices.UseMock && c.Prices.BaseURL == "" {
		return fmt.Errorf("PRICES_BASE_URL is required")
	}
	if c.Prices.RateLimitRPS <= 0 {
		return fmt.Errorf("PRICES_RATE_LIMIT_RPS must be positive")
	}
	if c.Scanner.RefreshInterval <= 0 || c.API.RefreshInterval <= 0 {
		return fmt.Errorf("refresh intervals must be positive")
	}
	if c.API.RateLimitRPS < 0 {
		return fmt.Errorf("API_RATE_LIMIT_RPS cannot be negative")
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

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
