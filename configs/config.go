package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port                   string
	Environment            string
	APIKey                 string
	AdminUsername          string
	AdminPassword          string
	DetectorURL            string
	DetectorTimeoutSeconds int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:                   getEnv("PORT", "8080"),
		Environment:            getEnv("ENVIRONMENT", "development"),
		APIKey:                 getEnv("API_KEY", ""),
		AdminUsername:          getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:          getEnv("ADMIN_PASSWORD", ""),
		DetectorURL:            getEnv("DETECTOR_URL", ""),
		DetectorTimeoutSeconds: getEnvInt("DETECTOR_TIMEOUT_SECONDS", 10),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
