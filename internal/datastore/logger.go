package datastore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
)

// GormLogger adapts slog + the queue/db metrics recorder to GORM's
// logger.Interface, so every SQL trace is both logged structurally and
// counted per operation/table.
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
	metrics       *metrics.Recorder
}

// NewGormLogger builds a GormLogger. metrics may be nil in tests.
func NewGormLogger(slowThreshold time.Duration, level gormlogger.LogLevel, m *metrics.Recorder) *GormLogger {
	return &GormLogger{SlowThreshold: slowThreshold, LogLevel: level, metrics: m}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.LogLevel >= gormlogger.Info {
		logging.ForService("datastore").InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.LogLevel >= gormlogger.Warn {
		logging.ForService("datastore").WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.LogLevel >= gormlogger.Error {
		logging.ForService("datastore").ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

var operationPattern = regexp.MustCompile(`(?i)^\s*(select|insert|update|delete)\b`)

func parseOperation(sql string) string {
	if m := operationPattern.FindStringSubmatch(sql); len(m) == 2 {
		return m[1]
	}
	return "other"
}

// Trace implements logger.Interface. It logs failures and slow queries
// and feeds per-operation duration into the metrics recorder.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	operation := parseOperation(sql)

	if l.metrics != nil {
		l.metrics.ObserveDBQueryDuration(operation, elapsed.Seconds())
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		logging.ForService("datastore").ErrorContext(ctx, "query failed",
			"error", err, "sql", sql, "duration", elapsed, "rows", rows)
		if l.metrics != nil {
			l.metrics.IncDBQueryError(operation)
		}
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold:
		logging.ForService("datastore").WarnContext(ctx, "slow query",
			"sql", sql, "duration", elapsed, "rows", rows, "threshold", l.SlowThreshold)
	}
}
