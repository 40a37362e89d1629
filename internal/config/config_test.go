package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVICE_NAME", "DB_DRIVER", "DB_DSN", "PG_DSN", "EVENTS_ENABLED", "SHUTDOWN_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "items", cfg.ServiceName)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Contains(t, cfg.DBDSN, "postgres://")
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:items.db")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "file:items.db", cfg.DBDSN)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLegacyDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("PG_DSN", "postgres://legacy")

	assert.Equal(t, "postgres://legacy", Load().DBDSN)
}

func TestLoadMalformedValues(t *testing.T) {
	t.Setenv("EVENTS_ENABLED", "maybe")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := Load()
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}
