package logger

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetZapLevel(t *testing.T) {
	tests := []struct {
		level types.LogLevel
		want  zapcore.Level
	}{
		{types.LogLevelDebug, zapcore.DebugLevel},
		{types.LogLevelInfo, zapcore.InfoLevel},
		{types.LogLevelWarn, zapcore.WarnLevel},
		{types.LogLevelError, zapcore.ErrorLevel},
		{types.LogLevel("verbose"), zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, getZapLevel(tt.level))
		})
	}
}

func observedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestWatermillLoggerMergesFields(t *testing.T) {
	l, logs := observedLogger()

	wl := l.GetWatermillLogger().With(watermill.LogFields{"topic": "contract.payment.contract"})
	wl.Error("handler failed", errors.New("boom"), watermill.LogFields{"message_uuid": "m-1"})

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "contract.payment.contract", fields["topic"])
	assert.Equal(t, "m-1", fields["message_uuid"])
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestCronLoggerError(t *testing.T) {
	l, logs := observedLogger()

	l.GetCronLogger().Error(errors.New("panic"), "job failed", "entry", 1)

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "cron: job failed", entries[0].Message)
	assert.Equal(t, "panic", entries[0].ContextMap()["error"])
}
