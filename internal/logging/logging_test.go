package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), "level %q", input)
	}
}

func TestNew_WritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ineza.log")
	logger, closer := New(Options{Level: "debug", File: path})
	logger.Info("catalog ready", "services", 3)
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"catalog ready"`)
	assert.Contains(t, string(raw), `"services":3`)
}

func TestNew_WithoutFile(t *testing.T) {
	logger, closer := New(Options{})
	require.NotNil(t, logger)
	assert.NoError(t, closer.Close())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
