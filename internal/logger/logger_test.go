package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("INFO"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("bogus"))
}

func TestLogUsableBeforeInitialize(t *testing.T) {
	assert.NotPanics(t, func() {
		Log.Info("no-op")
		WarnWithFields("no-op", nil)
	})
}

func TestInitializeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huddle.log")

	require.NoError(t, Initialize("info", path))
	Log.Info("hello from test")
	_ = Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}
