package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60*time.Second, cfg.Quote.TTL)
	assert.Equal(t, "./limits.yaml", cfg.Quote.LimitsPath)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Database.ConnectAttempts)
	assert.Equal(t, time.Duration(0), cfg.Rates.RefreshInterval)
	assert.Equal(t, "", cfg.Redis.URL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("QUOTE_TTL", "2m")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("RATES_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Quote.TTL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2.5, cfg.Rates.RequestsPerSecond)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nRATES_WORKERS=7\n"), 0o600))
	// godotenv sets variables on the process; register them for cleanup
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")
	t.Setenv("RATES_WORKERS", "")
	os.Unsetenv("RATES_WORKERS")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Rates.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("QUOTE_TTL", "0s")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("QUOTE_TTL", "not-a-duration")
	_, err = Load()
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	t.Setenv("EXQ_TEST_VAR", "value")
	assert.Equal(t, "value", Lookup("EXQ_TEST_VAR", "default"))
	assert.Equal(t, "default", Lookup("EXQ_MISSING_VAR", "default"))
}
