package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewZapLogger_ValidConfig_CreatesLoggerSuccessfully(t *testing.T) {
	tests := []struct {
		name          string
		isDevelopment bool
		expectedLevel zapcore.Level
	}{
		{name: "development mode", isDevelopment: true, expectedLevel: zapcore.DebugLevel},
		{name: "production mode", isDevelopment: false, expectedLevel: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig(TestProcess)
			cfg.LogDir = t.TempDir()
			cfg.IsDevelopment = tt.isDevelopment

			logger, err := NewZapLogger(cfg)
			require.NoError(t, err)
			require.NotNil(t, logger.sugarLogger)
			assert.True(t, logger.logger.Core().Enabled(tt.expectedLevel))
			assert.Equal(t, tt.expectedLevel, getLogLevel(tt.isDevelopment))
		})
	}
}

func TestNewZapLogger_MissingProcessName_ReturnsError(t *testing.T) {
	_, err := NewZapLogger(LoggerConfig{DisableFile: true})
	assert.Error(t, err)
}

func TestNewZapLogger_WritesRotatedFile(t *testing.T) {
	cfg := NewDefaultConfig(TestProcess)
	cfg.LogDir = t.TempDir()
	cfg.IsDevelopment = false

	logger, err := NewZapLogger(cfg)
	require.NoError(t, err)

	logger.Info("nonce reserved", "nonce", 7)
	logger.With("round_id", "abc").Warn("partial rejected")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, LogsDir, string(TestProcess)+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "nonce reserved")
	assert.Contains(t, string(data), `"round_id":"abc"`)
}

func TestLevelTag(t *testing.T) {
	assert.Equal(t, "DBG", levelTag(zapcore.DebugLevel))
	assert.Equal(t, "INF", levelTag(zapcore.InfoLevel))
	assert.Equal(t, "WRN", levelTag(zapcore.WarnLevel))
	assert.Equal(t, "ERR", levelTag(zapcore.ErrorLevel))
	assert.Equal(t, "FTL", levelTag(zapcore.FatalLevel))
}

func TestMockLogger_DefaultExpectations(t *testing.T) {
	m := new(MockLogger)
	m.SetupDefaultExpectations()

	m.Info("hello", "k", "v")
	m.Errorf("failed: %v", "boom")
	assert.Equal(t, m, m.With("k", "v"))
	m.AssertCalled(t, "Info", "hello", []any{"k", "v"})
}

func TestNoOpLogger(t *testing.T) {
	l := NewNoOpLogger()
	l.Info("ignored")
	assert.Equal(t, l, l.With("k", "v"))
}

func TestServiceLogger_Lifecycle(t *testing.T) {
	_, isNoOp := GetServiceLogger().(*NoOpLogger)
	assert.True(t, isNoOp)

	cfg := NewDefaultConfig(TestProcess)
	cfg.LogDir = t.TempDir()
	first, err := InitServiceLogger(cfg)
	require.NoError(t, err)
	second, err := InitServiceLogger(cfg)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, first, GetServiceLogger())

	Shutdown()
	_, isNoOp = GetServiceLogger().(*NoOpLogger)
	assert.True(t, isNoOp)
}
