package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings. It is built once in main and
// passed down explicitly; nothing reads the environment after Load.
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// Generation provider: "gemini", "openai", or "local".
	Provider      string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	FallbackLocal bool

	// Retry policy for remote generation calls.
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Game rules.
	MaxQuestions int

	// Storage backend: "redis" or "sqlite".
	StorageBackend string
	RedisURL       string
	SQLitePath     string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		Provider:      strings.ToLower(getEnv("GENERATION_PROVIDER", "local")),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		FallbackLocal: getEnvBool("FALLBACK_TO_LOCAL", true),

		MaxAttempts:    getEnvInt("GENERATION_MAX_ATTEMPTS", 3),
		RetryBaseDelay: getEnvDuration("GENERATION_RETRY_BASE_DELAY", 800*time.Millisecond),
		RetryMaxDelay:  getEnvDuration("GENERATION_RETRY_MAX_DELAY", 8*time.Second),

		MaxQuestions: getEnvInt("MAX_QUESTIONS", 12),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "redis")),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		SQLitePath:     getEnv("SQLITE_PATH", "mystery.db"),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
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
