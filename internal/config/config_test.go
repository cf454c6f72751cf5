package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
http:
  port: "9000"
log:
  level: debug
outbox:
  poll_interval: 500ms
albergue:
  max_nights: 7
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Outbox.PollInterval)
	assert.Equal(t, 7, cfg.Albergue.MaxNights)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 4, cfg.Albergue.MaxGuests)
	assert.Equal(t, 10, cfg.Outbox.BatchSize)
	assert.Equal(t, uint(3), cfg.TravelerReport.Attempts)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
http:
  port: "9000"
rate_limit:
  backend: memory
`)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.HTTP.Port)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Albergue.MaxNights)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.CleanupInterval)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "earliest", cfg.Kafka.StartOffset)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Log{Level: tt.in}.SlogLevel(), tt.in)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := Postgres{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "albergue"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=albergue sslmode=disable", p.DSN())
}

func TestAuthValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.JWTSecret)
	require.Error(t, cfg.Auth.Validate())

	for _, weak := range []string{"change-me", "CHANGE-ME", "short-secret"} {
		require.Error(t, Auth{JWTSecret: weak}.Validate(), weak)
	}

	t.Setenv("JWT_SECRET", "3f9c1e0a7b5d4c2e8f6a1b0c9d7e5f3a")
	cfg, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Auth.Validate())
}
