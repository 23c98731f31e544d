package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	err := Initialize(false)
	require.NoError(t, err)
	require.NotNil(t, Logger)
	assert.False(t, JSONOutput)

	err = Initialize(true)
	require.NoError(t, err)
	assert.True(t, JSONOutput)
}

func TestInitializeWithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "monitor.log")

	err := InitializeWithFile(false, logFile)
	require.NoError(t, err)

	Infow("Processing order", FieldOrderNumber, "1042")
	Cleanup()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Processing order")
	assert.Contains(t, string(data), "order_number=1042")
	// File output must not carry color escapes
	assert.NotContains(t, string(data), "\x1b[")
}

func TestNilSafeWrappers(t *testing.T) {
	// Package-level helpers must not panic even without Initialize
	prev := Logger
	Logger = nil
	defer func() { Logger = prev }()

	assert.NotPanics(t, func() {
		Info("info")
		Warnw("warn", "k", "v")
		Errorf("error %d", 1)
		Debug("debug")
	})
}

func TestMinimalEncoderLevels(t *testing.T) {
	enc := newMinimalEncoder(false)

	entry := zapcore.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   zapcore.WarnLevel,
		Message: "label not available yet",
	}
	buf, err := enc.EncodeEntry(entry, []zapcore.Field{zap.String("order_number", "7")})
	require.NoError(t, err)

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "15:04:05"))
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "label not available yet")
	assert.Contains(t, line, "order_number=7")
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(VerbosityUser))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(VerbosityInfo))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityDebug))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(5))
}
