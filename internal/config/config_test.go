package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("LATENCY_SCALE", "")

		cfg := Load()
		assert.Empty(t, cfg.DatabaseURL)
		assert.Equal(t, 1.0, cfg.LatencyScale)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("LATENCY_SCALE", "0")
		t.Setenv("SECURE_STORE", "SQLite")
		t.Setenv("LOG_FORMAT", "Console")

		cfg := Load()
		assert.Equal(t, "9090", cfg.ServerPort)
		assert.Zero(t, cfg.LatencyScale)
		assert.Equal(t, "sqlite", cfg.SecureStore)
		assert.Equal(t, "console", cfg.LogFormat)
	})

	t.Run("bad latency falls back", func(t *testing.T) {
		t.Setenv("LATENCY_SCALE", "fast")
		assert.Equal(t, 1.0, Load().LatencyScale)

		t.Setenv("LATENCY_SCALE", "-2")
		assert.Equal(t, 1.0, Load().LatencyScale)
	})
}

func TestCheckSecrets(t *testing.T) {
	t.Run("default secret with memory store", func(t *testing.T) {
		cfg := &Config{JWTSecret: DefaultJWTSecret}
		assert.True(t, cfg.UsesDefaultJWTSecret())
		assert.NoError(t, cfg.CheckSecrets())
	})

	t.Run("default secret with postgres", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://localhost/geev", JWTSecret: DefaultJWTSecret}
		assert.ErrorIs(t, cfg.CheckSecrets(), ErrDefaultJWTSecret)

		cfg.JWTSecret = ""
		assert.ErrorIs(t, cfg.CheckSecrets(), ErrDefaultJWTSecret)
	})

	t.Run("own secret", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://localhost/geev", JWTSecret: "s3cret"}
		assert.False(t, cfg.UsesDefaultJWTSecret())
		assert.NoError(t, cfg.CheckSecrets())
	})

	t.Run("loaded from env", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/geev")
		t.Setenv("JWT_SECRET", DefaultJWTSecret)
		assert.ErrorIs(t, Load().CheckSecrets(), ErrDefaultJWTSecret)
	})
}
