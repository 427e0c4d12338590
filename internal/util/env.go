package util

import (
	"os"
	"strconv"
	"time"
)

// EnvOrDefault returns the environment variable value or fallback when it is empty.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// EnvIntOrDefault parses the variable as an integer, using fallback when it
// is empty or malformed.
func EnvIntOrDefault(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

// EnvDurationOrDefault parses the variable with time.ParseDuration.
func EnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

// EnvBoolOrDefault parses the variable with strconv.ParseBool.
func EnvBoolOrDefault(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}
