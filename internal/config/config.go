package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret signs tokens when JWT_SECRET is unset. It is public and
// only fit for the in-memory demo store.
const DefaultJWTSecret = "dev-secret-change-me"

var ErrDefaultJWTSecret = errors.New("JWT_SECRET must be set when DATABASE_URL is set")

type Config struct {
	ServerPort string
	// DatabaseURL selects the postgres store. Empty means the seeded
	// in-memory store.
	DatabaseURL string
	JWTSecret   string

	LogLevel  string
	LogFormat string

	// LatencyScale multiplies the simulated network delays. 0 disables them.
	LatencyScale float64

	SecureStore     string
	SecureStorePath string
	SecureStoreKey  string
	RedisURL        string

	// APIURL points the demo client at a remote server.
	APIURL string
}

// Load reads the environment, after merging a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", DefaultJWTSecret),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "json")),
		LatencyScale:    getFloatEnv("LATENCY_SCALE", 1.0),
		SecureStore:     strings.ToLower(getEnv("SECURE_STORE", "memory")),
		SecureStorePath: getEnv("SECURE_STORE_PATH", "geev-secure.db"),
		SecureStoreKey:  getEnv("SECURE_STORE_KEY", ""),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		APIURL:          getEnv("API_URL", ""),
	}
}

// UsesDefaultJWTSecret reports whether tokens are signed with the public
// fallback secret.
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret
}

// CheckSecrets refuses the default JWT secret for a persistent store.
func (c *Config) CheckSecrets() error {
	if c.DatabaseURL != "" && c.UsesDefaultJWTSecret() {
		return ErrDefaultJWTSecret
	}
	return nil
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil || f < 0 {
		return fallback
	}
	return f
}
