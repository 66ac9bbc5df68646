package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Scheduling policy document (JSON, loaded once at startup)
	SchedulingPolicyPath string
	MaxSuggestions       int

	// Nextech EMR Configuration
	NextechBaseURL      string
	NextechClientID     string
	NextechClientSecret string
	NextechTimeout      time.Duration

	// Schedule snapshot cache
	ScheduleCacheTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SchedulingPolicyPath: getEnv("SCHEDULING_POLICY_PATH", "scheduling_policy.json"),
		MaxSuggestions:       getEnvAsInt("MAX_SUGGESTIONS", 3),

		// Nextech EMR Configuration
		NextechBaseURL:      getEnv("NEXTECH_BASE_URL", ""),
		NextechClientID:     getEnv("NEXTECH_CLIENT_ID", ""),
		NextechClientSecret: getEnv("NEXTECH_CLIENT_SECRET", ""),
		NextechTimeout:      getEnvAsDuration("NEXTECH_TIMEOUT", 30*time.Second),

		ScheduleCacheTTL: getEnvAsDuration("SCHEDULE_CACHE_TTL", time.Minute),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
