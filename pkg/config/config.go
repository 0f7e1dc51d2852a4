package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the arcade host
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Backend ranking API
	API APIConfig

	// Shared key/value store between host and game runtime
	Store StoreConfig

	// Redis
	Redis RedisConfig

	// Database (submission outbox, optional)
	Database DatabaseConfig

	// Per-model stream / featured replay lookup
	Models map[string]ModelConfig

	// Scheduler
	ResubmitSchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

// APIConfig holds backend API configuration
type APIConfig struct {
	BaseURL          string
	Timeout          time.Duration
	SubmitRatePerSec float64 // 0 disables the limiter
}

// StoreConfig selects the shared store backend
type StoreConfig struct {
	Backend      string // memory, redis
	Prefix       string
	PollInterval time.Duration
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
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether the outbox database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ModelConfig holds environment-provided URLs for a play model
type ModelConfig struct {
	StreamURL string
	ReplayID  string
}

// KnownModels lists the model ids that accept STREAM_URL_* / REPLAY_ID_* overrides
var KnownModels = []string{"beginner", "medium", "master"}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit env file. An empty path searches the
// default locations; a missing explicit file is an error.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	} else {
		loadEnvFile()
	}

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		API: APIConfig{
			BaseURL:          strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/"),
			Timeout:          getEnvAsDuration("HTTP_TIMEOUT", "15s"),
			SubmitRatePerSec: getEnvAsFloat("SUBMIT_RATE_PER_SEC", 2),
		},

		Store: StoreConfig{
			Backend:      strings.ToLower(getEnv("STORE_BACKEND", "memory")),
			Prefix:       getEnv("STORE_PREFIX", "arcade"),
			PollInterval: getEnvAsDuration("POLL_INTERVAL", "500ms"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Models: loadModels(),

		ResubmitSchedule: getEnv("RESUBMIT_SCHEDULE", "0 */5 * * * *"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set.
// Call it again after overriding fields from flags.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL, got %q", c.API.BaseURL)
	}

	switch c.Store.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: memory, redis")
	}

	if c.Store.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}

	return nil
}

// StreamURL returns the configured stream URL for a model, if any
func (c *Config) StreamURL(modelID string) string {
	return c.Models[modelID].StreamURL
}

// ReplayID returns the configured featured replay id for a model, if any
func (c *Config) ReplayID(modelID string) string {
	return c.Models[modelID].ReplayID
}

// Helper functions (private, only used within this file)

func loadModels() map[string]ModelConfig {
	models := make(map[string]ModelConfig, len(KnownModels))
	for _, id := range KnownModels {
		suffix := strings.ToUpper(id)
		models[id] = ModelConfig{
			StreamURL: getEnv("STREAM_URL_"+suffix, ""),
			ReplayID:  getEnv("REPLAY_ID_"+suffix, ""),
		}
	}
	return models
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
