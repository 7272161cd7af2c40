// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               string
	LogLevel          string
	HeartbeatInterval int     // Seconds between background health self-checks
	RateLimitRate     float64 // Tokens added per second to each client bucket
	RateLimitCapacity int64   // Maximum tokens a client bucket can hold
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8080"),
		Address:           getEnvWithDefault("ADDRESS", "0.0.0.0"),
		Env:               getEnvWithDefault("ENV", "dev"),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		HeartbeatInterval: getIntEnvWithDefault("HEARTBEAT_INTERVAL_SECONDS", 60),
		RateLimitRate:     getFloatEnvWithDefault("RATE_LIMIT_RATE", 50),
		RateLimitCapacity: getInt64EnvWithDefault("RATE_LIMIT_CAPACITY", 200),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateHeartbeatInterval(cfg.HeartbeatInterval); err != nil {
		return fmt.Errorf("invalid HEARTBEAT_INTERVAL_SECONDS: %w", err)
	}

	if err := validateRateLimit(cfg.RateLimitRate, cfg.RateLimitCapacity); err != nil {
		return err
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	// localhost/loopback is acceptable for development
	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env string) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []string{"dev", "staging", "prod", "test"}
	env = strings.ToLower(env)

	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateHeartbeatInterval validates the HEARTBEAT_INTERVAL_SECONDS environment variable
func validateHeartbeatInterval(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL_SECONDS must be positive, got: %d", seconds)
	}

	if seconds > 3600 {
		return fmt.Errorf("HEARTBEAT_INTERVAL_SECONDS is too large (max 3600), got: %d", seconds)
	}

	return nil
}

// validateRateLimit validates the rate limiter environment variables
func validateRateLimit(rate float64, capacity int64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_RATE: must be positive, got: %v", rate)
	}

	if capacity <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_CAPACITY: must be positive, got: %d", capacity)
	}

	if int64(rate) > capacity {
		return fmt.Errorf("invalid RATE_LIMIT_RATE: exceeds RATE_LIMIT_CAPACITY (%v > %d)", rate, capacity)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnvWithDefault gets an environment variable as float64 with a default value
func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"HEARTBEAT_INTERVAL_SECONDS",
		"RATE_LIMIT_RATE",
		"RATE_LIMIT_CAPACITY",
	}
}
