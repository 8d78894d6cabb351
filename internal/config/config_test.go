package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blankLoadEnv blanks every variable Load reads, via t.Setenv so the
// previous values come back after the test. getEnv treats "" as unset.
func blankLoadEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"HTTP_ADDR",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"DB_MAX_CONNS", "DB_MAX_IDLE",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"GEOCODE_BASE_URL", "GEOCODE_USER_AGENT", "GEOCODE_TIMEOUT",
		"WORKDAY_SHIFT_START", "WORKDAY_SHIFT_END", "WORKDAY_LATE_GRACE",
		"WORKDAY_BREAK", "WORKDAY_HALF_DAY_MAX_HOURS",
		"AGENT_SERVER_URL", "AGENT_EMPLOYEE_ID",
		"AGENT_STATUS_POLL_INTERVAL", "AGENT_TRACK_INTERVAL",
		"LOG_LEVEL", "LOG_FORMAT",
		"CONFIG_FILE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	blankLoadEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "attendance", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocode.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Geocode.Timeout)

	assert.Equal(t, "09:00", cfg.Workday.ShiftStart)
	assert.Equal(t, 15*time.Minute, cfg.Workday.LateGrace)

	assert.Equal(t, 30*time.Second, cfg.Agent.StatusPollInterval)
	assert.Equal(t, 30*time.Second, cfg.Agent.TrackInterval)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	blankLoadEnv(t)
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_NAME", "test-db")
	t.Setenv("REDIS_ADDR", "test-redis:6380")
	t.Setenv("AGENT_TRACK_INTERVAL", "10s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.Agent.TrackInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	blankLoadEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("http:\n  addr: \":9090\"\nworkday:\n  shift_start: \"08:30\"\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "08:30", cfg.Workday.ShiftStart)
	// values the file does not mention keep their env/default values
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "u",
		Password: "p",
		Database: "attendance",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=attendance sslmode=disable", c.DSN())
}
