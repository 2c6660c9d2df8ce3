package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string
	RedisAddr    string
	JWTSecret    []byte
	// TokenTTL governs both the signed expiry embedded in issued tokens
	// and the TTL applied to session records in the store. One knob, so
	// the two expiry mechanisms cannot drift apart.
	TokenTTL time.Duration
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "4000")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	ttlStr := getEnv("TOKEN_TTL_SECONDS", "3600")
	ttlSecs, err := strconv.Atoi(ttlStr)
	if err != nil || ttlSecs <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL_SECONDS: %q", ttlStr)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return &Config{
		ServerPort:   port,
		DatabasePath: getEnv("DATABASE_PATH", "./bookstore.db"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:    []byte(secret),
		TokenTTL:     time.Duration(ttlSecs) * time.Second,
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
