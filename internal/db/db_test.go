package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carretometro-backend/config"
	"carretometro-backend/internal/logger"
	"carretometro-backend/internal/model"
)

func TestInit_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	}

	gdb, err := Init(cfg, logger.Discard())
	require.NoError(t, err)

	for _, table := range []any{
		&model.Visit{}, &model.Fleet{}, &model.User{}, &model.PasswordResetRequest{},
		&model.AccessRequest{}, &model.AuditEntry{}, &model.PushSubscription{},
	} {
		assert.True(t, gdb.Migrator().HasTable(table))
	}
}

func TestDialectorFor_Unknown(t *testing.T) {
	_, err := dialectorFor(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
