package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"carretometro-backend/config"
)

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(config.LogConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	l.WithField("visit", "V001").Info("created")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"visit":"V001"`)
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := New(config.LogConfig{Level: "loud"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}

func TestContext(t *testing.T) {
	base := Discard()
	entry := base.WithField("request_id", "abc")

	ctx := WithContext(context.Background(), entry)
	assert.Equal(t, entry, FromContext(ctx, base))
	assert.Equal(t, base, FromContext(context.Background(), base))
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, gormLevel("silent"))
	assert.Equal(t, gormlogger.Error, gormLevel("ERROR"))
	assert.Equal(t, gormlogger.Info, gormLevel("info"))
	assert.Equal(t, gormlogger.Warn, gormLevel(""))
}
