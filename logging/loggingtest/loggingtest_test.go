package loggingtest

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogsDebug(t *testing.T) {
	logger := New(t)
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level enabled")
	}
	logger.Debug("visible in test output")
}
