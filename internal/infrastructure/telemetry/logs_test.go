package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewZapOTELCore_Disabled(t *testing.T) {
	assert.Equal(t, zapcore.NewNopCore(), NewZapOTELCore("ledger", nil, zapcore.InfoLevel))
	assert.Equal(t, zapcore.NewNopCore(), NewZapOTELCore("ledger", &LoggerProvider{}, zapcore.InfoLevel))
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	logger := zap.New(core).With(zap.String("community_id", "c-1"))
	logger.Info("dropped")
	logger.Warn("kept")

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "kept", entries[0].Message)
		assert.Equal(t, "c-1", entries[0].ContextMap()["community_id"])
	}
}

func TestNewBridgedLogger(t *testing.T) {
	baseCore, baseLogs := observer.New(zapcore.InfoLevel)
	otelCore, otelLogs := observer.New(zapcore.InfoLevel)

	logger := NewBridgedLogger(zap.New(baseCore), otelCore)
	logger.Info("payment created")

	assert.Equal(t, 1, baseLogs.Len())
	assert.Equal(t, 1, otelLogs.Len())
}
