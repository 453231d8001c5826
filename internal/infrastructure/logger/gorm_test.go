package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, zapLevel zapcore.Level) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapLevel)
	return NewGormLogger(zap.New(core), level), recorded
}

func traceQuery(rows int64) func() (string, int64) {
	return func() (string, int64) {
		return `SELECT * FROM "orders" WHERE entity_id = $1`, rows
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info, zapcore.InfoLevel)

	changed := gormLog.LogMode(gormlogger.Warn)

	// LogMode returns a copy, the original keeps its level
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	changedLog, ok := changed.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, changedLog.logLevel)
}

func TestGormLogger_LevelGating(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Silent, zapcore.DebugLevel)

	gormLog.Info(context.Background(), "suppressed")
	gormLog.Warn(context.Background(), "suppressed")
	gormLog.Trace(context.Background(), time.Now(), traceQuery(1), nil)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_Error(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error, zapcore.ErrorLevel)

	gormLog.Trace(context.Background(), time.Now(), traceQuery(0), errors.New("connection reset"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "sql error", logs[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
}

func TestGormLogger_Trace_RecordNotFoundIgnored(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error, zapcore.ErrorLevel)

	// an entity lookup missing its row is an expected outcome
	gormLog.Trace(context.Background(), time.Now(), traceQuery(0), gormlogger.ErrRecordNotFound)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Warn, zapcore.WarnLevel)

	begin := time.Now().Add(-2 * slowQueryThreshold)
	gormLog.Trace(context.Background(), begin, traceQuery(10), nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "slow sql", logs[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
}

func TestGormLogger_Trace_NormalQuery(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Info, zapcore.DebugLevel)

	gormLog.Trace(context.Background(), time.Now(), traceQuery(5), nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "sql", logs[0].Message)
}

func TestGormLogger_Trace_CarriesCorrelationFields(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Info, zapcore.DebugLevel)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
	ctx = context.WithValue(ctx, UserIDKey, "user-456")

	gormLog.Trace(ctx, time.Now(), traceQuery(1), nil)

	logs := recorded.All()
	require.Len(t, logs, 1)

	fields := make(map[string]string)
	for _, field := range logs[0].Context {
		fields[field.Key] = field.String
	}
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, "user-456", fields["user_id"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info, zapcore.InfoLevel)
	var _ gormlogger.Interface = gormLog
}
