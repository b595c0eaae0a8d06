package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger()

	assert.NotNil(t, logger)
	logger.Info("test message")
	assert.IsType(t, &zap.Logger{}, logger)
}

func TestNewLogger_LevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	logger := NewLogger()

	assert.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel), "Info should be filtered out at error level")
	assert.True(t, logger.Core().Enabled(zap.ErrorLevel))
}

func TestNewLogger_InvalidLevelFallsBack(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	logger := NewLogger()

	assert.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel), "Unknown level should fall back to info")
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
