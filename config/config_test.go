package config

import (
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

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "carretometro.db", cfg.Database.DSN)
	assert.Equal(t, 1500*time.Millisecond, cfg.Monitor.Interval)
	assert.Equal(t, "America/Sao_Paulo", cfg.Monitor.Timezone)
	require.NotNil(t, cfg.Monitor.Location)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 120*time.Hour, cfg.Auth.SessionTTL())
	require.NotNil(t, cfg.Auth.SeedDefaultUsers)
	assert.True(t, *cfg.Auth.SeedDefaultUsers)
	assert.Equal(t, 60, cfg.AI.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_ExplicitValues(t *testing.T) {
	body := `
database:
  driver: Postgres
  dsn: host=db user=app
monitor:
  enabled: true
  interval_ms: 250
  timezone: UTC
auth:
  seed_default_users: false
push:
  vapid_public_key: pub
  vapid_private_key: priv
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=db user=app", cfg.Database.DSN)
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Monitor.Interval)
	assert.Equal(t, time.UTC, cfg.Monitor.Location)
	assert.False(t, *cfg.Auth.SeedDefaultUsers)
	assert.True(t, cfg.Push.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CARRETOMETRO_DB_DSN", "from-env.db")
	t.Setenv("CARRETOMETRO_JWT_SECRET", "s3cret")
	t.Setenv("CARRETOMETRO_AI_ENDPOINT", "http://ai.local")

	cfg, err := Load(writeConfig(t, "database:\n  dsn: from-file.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.Database.DSN)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "http://ai.local", cfg.AI.Endpoint)
}

func TestApplyEnv_EveryOverride(t *testing.T) {
	for _, o := range envOverrides {
		t.Run(o.name, func(t *testing.T) {
			t.Setenv(o.name, "value-of-"+o.name)

			var cfg Config
			applyEnv(&cfg)
			assert.Equal(t, "value-of-"+o.name, *o.field(&cfg))
		})
	}

	t.Run("Empty variable keeps the file value", func(t *testing.T) {
		t.Setenv("CARRETOMETRO_AI_API_KEY", "")
		cfg := Config{AI: AIConfig{APIKey: "from-file"}}
		applyEnv(&cfg)
		assert.Equal(t, "from-file", cfg.AI.APIKey)
	})
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "Unknown driver", body: "database:\n  driver: oracle\n"},
		{name: "Postgres without DSN", body: "database:\n  driver: postgres\n"},
		{name: "Bad timezone", body: "monitor:\n  timezone: Mars/Olympus\n"},
		{name: "Malformed YAML", body: "server: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
