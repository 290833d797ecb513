// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	Port        string
	DataDir     string
	LogLevel    string
	LogEncoding string
	DebugMode   bool

	// Persistence selects the scenario store backing: "memory" (default)
	// or "file" (JSON documents under DataDir).
	Persistence string

	// Validation bounds for scenarios.
	MinSections int
	MaxSections int
	MinDuration int
	MaxDuration int
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file.
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DataDir:     getEnvPath("DATA_DIR", "data"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogEncoding: getEnv("LOG_ENCODING", "json"),
		DebugMode:   getEnvBool("DEBUG_MODE", false),
		Persistence: getEnv("PERSISTENCE", "memory"),
		MinSections: getEnvInt("MIN_SECTIONS", 2),
		MaxSections: getEnvInt("MAX_SECTIONS", 20),
		MinDuration: getEnvInt("MIN_DURATION", 30),
		MaxDuration: getEnvInt("MAX_DURATION", 600),
	}

	if config.Persistence != "memory" && config.Persistence != "file" {
		return nil, fmt.Errorf("invalid PERSISTENCE value: %s (expected memory or file)", config.Persistence)
	}

	return config, nil
}

// getEnv returns the environment variable or the default.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath returns the path from the environment, creating the directory
// when it does not exist.
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("Warning: failed to create directory %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool returns a boolean environment variable.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvInt returns an integer environment variable.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
