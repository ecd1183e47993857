package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 60, cfg.RoundSeconds)
	assert.Equal(t, time.Second, cfg.RoundTick)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("ROUND_SECONDS", "30")
	t.Setenv("ROUND_TICK", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, DriverRedis, cfg.StoreDriver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 30, cfg.RoundSeconds)
	assert.Equal(t, 250*time.Millisecond, cfg.RoundTick)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ROUND_SECONDS", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestPostgresURL(t *testing.T) {
	cfg := Config{StoreDriver: DriverPostgres, RoundSeconds: 60, RoundTick: time.Second}
	assert.Error(t, cfg.Validate())

	cfg.PostgresUser, cfg.PostgresPassword, cfg.PGHost, cfg.PGPort, cfg.PGDatabase = "u", "p", "db", "5432", "chroma"
	assert.Equal(t, "postgres://u:p@db:5432/chroma", cfg.PostgresURL())
	assert.NoError(t, cfg.Validate())

	cfg.DatabaseURL = "postgres://override/x"
	assert.Equal(t, "postgres://override/x", cfg.PostgresURL())
}
