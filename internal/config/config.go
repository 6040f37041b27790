package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Host string
	Port int

	// Public hostname, used to build webhook callback URLs
	Domain string

	// Database configuration
	DatabasePath string

	// Strava API configuration
	StravaClientID     string
	StravaClientSecret string
	StravaVerifyToken  string
	StravaRedirectURI  string

	// Internal API configuration
	InternalAPIKey string

	// Metrics configuration
	MetricsEnabled bool
	MetricsHost    string
	MetricsPort    int

	// Logging configuration
	LogLevel string
}

// Load reads configuration from environment variables
// It fails fast if required variables are missing
func Load() (*Config, error) {
	// Best-effort .env bootstrap for local development
	_ = godotenv.Load()

	cfg := &Config{
		// Optional values with defaults
		Host:              getEnv("HOST", "localhost"),
		Domain:            getEnv("DOMAIN", ""),
		Port:              getEnvInt("PORT", 4201),
		DatabasePath:      getEnv("DATABASE_PATH", "./runclub.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", false),
		MetricsHost:       getEnv("METRICS_HOST", "localhost"),
		MetricsPort:       getEnvInt("METRICS_PORT", 4202),
		StravaRedirectURI: getEnv("STRAVA_REDIRECT_URI", ""),
	}

	// Required values
	var missingVars []string

	cfg.StravaClientID = os.Getenv("STRAVA_CLIENT_ID")
	if cfg.StravaClientID == "" {
		missingVars = append(missingVars, "STRAVA_CLIENT_ID")
	}

	cfg.StravaClientSecret = os.Getenv("STRAVA_CLIENT_SECRET")
	if cfg.StravaClientSecret == "" {
		missingVars = append(missingVars, "STRAVA_CLIENT_SECRET")
	}

	cfg.StravaVerifyToken = os.Getenv("STRAVA_VERIFY_TOKEN")
	if cfg.StravaVerifyToken == "" {
		missingVars = append(missingVars, "STRAVA_VERIFY_TOKEN")
	}

	cfg.InternalAPIKey = os.Getenv("INTERNAL_API_KEY")
	if cfg.InternalAPIKey == "" {
		missingVars = append(missingVars, "INTERNAL_API_KEY")
	}

	if len(missingVars) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
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

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
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
