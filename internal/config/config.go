package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// HTTP Server Configuration
	HTTPPort         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration

	// Orchestrator Configuration
	MaxConcurrentJobs int
	WatchdogEnabled   bool
	WatchdogInterval  time.Duration
	WatchdogGrace     time.Duration

	// Provider Configuration
	FirecrawlBaseURL      string
	FirecrawlPollInterval time.Duration
	GeminiBaseURL         string
	GeminiModel           string
	ProviderTimeout       time.Duration

	// Optional boot-time credentials; the /configure endpoint can still
	// replace them at runtime
	GeminiAPIKey    string
	FirecrawlAPIKey string

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// CORS Configuration
	CORSAllowedOrigins   string
	CORSAllowedMethods   string
	CORSAllowedHeaders   string
	CORSAllowCredentials bool
	CORSMaxAge           int
}

// Load reads configuration from the environment (and a .env file when
// present) with sensible defaults
func Load() *Config {
	// A missing .env file is fine; real deployments set the environment
	_ = godotenv.Load()

	return &Config{
		// HTTP Server
		HTTPPort:         getEnv("HTTP_PORT", "8000"),
		HTTPReadTimeout:  getDurationEnv("HTTP_READ_TIMEOUT_SEC", 30) * time.Second,
		HTTPWriteTimeout: getDurationEnv("HTTP_WRITE_TIMEOUT_SEC", 30) * time.Second,
		ShutdownTimeout:  getDurationEnv("SHUTDOWN_TIMEOUT_SEC", 30) * time.Second,

		// Orchestrator
		MaxConcurrentJobs: getIntEnv("MAX_CONCURRENT_JOBS", 10),
		WatchdogEnabled:   getBoolEnv("WATCHDOG_ENABLED", true),
		WatchdogInterval:  getDurationEnv("WATCHDOG_INTERVAL_SEC", 30) * time.Second,
		WatchdogGrace:     getDurationEnv("WATCHDOG_GRACE_SEC", 60) * time.Second,

		// Providers
		FirecrawlBaseURL:      getEnv("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
		FirecrawlPollInterval: getDurationEnv("FIRECRAWL_POLL_INTERVAL_SEC", 3) * time.Second,
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", ""),
		ProviderTimeout:       getDurationEnv("PROVIDER_TIMEOUT_SEC", 60) * time.Second,
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		FirecrawlAPIKey:       getEnv("FIRECRAWL_API_KEY", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// CORS
		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),
		CORSAllowedMethods:   getEnv("CORS_ALLOWED_METHODS", "GET, POST, OPTIONS"),
		CORSAllowedHeaders:   getEnv("CORS_ALLOWED_HEADERS", "*"),
		CORSAllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAge:           getIntEnv("CORS_MAX_AGE", 3600),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
		log.Printf("Warning: Invalid duration value for %s, using default %d", key, defaultValue)
	}
	return time.Duration(defaultValue)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
	}
	return defaultValue
}
