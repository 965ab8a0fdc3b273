package telemetry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/medic/backend/internal/config"
)

func TestInitLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "medic.log")
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	logger, closer, err := InitLogger(config.LogConfig{Level: slog.LevelInfo, File: path})
	require.NoError(t, err)

	logger.Info("hello", "session", "abc")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"session":"abc"`)
}

func TestInitTelemetryDisabledIsNoop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "otel")
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: false, Dir: dir})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}
