package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		in   int
		want zapcore.Level
	}{
		{-1, zapcore.DebugLevel},
		{0, zapcore.DebugLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.WarnLevel},
		{3, zapcore.ErrorLevel},
		{9, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.in), "Level(%d)", tt.in)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "vectorpad.log")

	logger, err := New(LevelInfo, path)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("deliver failed")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "deliver failed", entry["msg"])
}

func TestNew_NoPath(t *testing.T) {
	logger, err := New(LevelDebug, "")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}
