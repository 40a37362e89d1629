package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func traceSQL() (string, int64) {
	return "SELECT * FROM items", 1
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core))
	ctx := context.Background()

	l.Trace(ctx, time.Now(), traceSQL, nil)
	l.Trace(ctx, time.Now().Add(-time.Second), traceSQL, nil)
	l.Trace(ctx, time.Now(), traceSQL, errors.New("syntax error"))
	l.Trace(ctx, time.Now(), traceSQL, gorm.ErrRecordNotFound)

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 4) {
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, "Slow SQL", entries[1].Message)
		assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
		assert.Equal(t, zapcore.DebugLevel, entries[3].Level) // not found is not a failure
		assert.Equal(t, "SELECT * FROM items", entries[0].ContextMap()["sql"])
	}
}

func TestGormLoggerLogMode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewGormLogger(zap.New(core))

	silent := base.LogMode(logger.Silent)
	silent.Trace(context.Background(), time.Now(), traceSQL, errors.New("ignored"))
	silent.Error(context.Background(), "ignored %d", 1)
	assert.Equal(t, 0, logs.Len())

	errorsOnly := base.LogMode(logger.Error)
	errorsOnly.Warn(context.Background(), "ignored")
	errorsOnly.Error(context.Background(), "failed %s", "query")
	if assert.Equal(t, 1, logs.Len()) {
		assert.Equal(t, "failed query", logs.All()[0].Message)
	}
}
