package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMoodWindow        = 100
	defaultSuggestionTopN    = 5
	defaultReconcileInterval = 15
)

// Config holds application configuration
type Config struct {
	DatabaseURL       string
	ServerPort        string
	BaseURL           string
	FrontendURL       string
	OpenAIKey         string
	AIProvider        string
	AIModel           string
	AIBaseURL         string
	EnableHSTS        bool
	OIDCProvider      string
	RedisURL          string
	RabbitMQURL       string
	RabbitMQPrefetch  int
	MoodWindow        int
	SuggestionTopN    int
	ReconcileInterval time.Duration
	LogFormat         string
	WorkerDebugMode   bool
	ServerDebugMode   bool
	OTELEnabled       bool
	OTELEndpoint      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
		AIProvider:        getEnv("AI_PROVIDER", "openai"),
		AIModel:           getEnv("AI_MODEL", ""),
		AIBaseURL:         getEnv("AI_BASE_URL", ""),
		EnableHSTS:        getEnvBool("ENABLE_HSTS", false),
		OIDCProvider:      getEnv("OIDC_PROVIDER", "default"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:  getEnvInt("RABBITMQ_PREFETCH", 1),
		MoodWindow:        getEnvInt("MOOD_WINDOW", defaultMoodWindow),
		SuggestionTopN:    getEnvInt("SUGGESTION_TOP_N", defaultSuggestionTopN),
		ReconcileInterval: time.Duration(getEnvInt("RECONCILE_INTERVAL_MINUTES", defaultReconcileInterval)) * time.Minute,
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		WorkerDebugMode:   getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:   getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:       getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (suggestion generation requires RabbitMQ)")
	}

	if cfg.MoodWindow < 1 {
		return nil, fmt.Errorf("MOOD_WINDOW must be at least 1, got %d", cfg.MoodWindow)
	}
	if cfg.SuggestionTopN < 1 {
		return nil, fmt.Errorf("SUGGESTION_TOP_N must be at least 1, got %d", cfg.SuggestionTopN)
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL_MINUTES must be positive")
	}

	return cfg, nil
}

// LoadTools loads the settings the operator CLI needs. Unlike Load it does
// not require the broker.
func LoadTools() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MoodWindow:     getEnvInt("MOOD_WINDOW", defaultMoodWindow),
		SuggestionTopN: getEnvInt("SUGGESTION_TOP_N", defaultSuggestionTopN),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.MoodWindow < 1 {
		cfg.MoodWindow = defaultMoodWindow
	}
	if cfg.SuggestionTopN < 1 {
		cfg.SuggestionTopN = defaultSuggestionTopN
	}
	return cfg, nil
}

// UsesSQLite reports whether DatabaseURL selects the embedded store.
func (c *Config) UsesSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, "sqlite://")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
