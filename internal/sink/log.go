package sink

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/pkg/logger"
)

// Log writes one structured log entry per record. Failed calls are logged
// at warn level.
type Log struct {
	logger *zap.Logger
	level  zapcore.Level
}

// NewLog creates a log sink that writes successful calls at level
func NewLog(l *zap.Logger, level zapcore.Level) *Log {
	return &Log{logger: logger.OrNop(l).Named("records"), level: level}
}

// Name implements Named
func (s *Log) Name() string { return "log" }

// Accept logs rec
func (s *Log) Accept(_ context.Context, rec *domain.CallRecord) error {
	level := s.level
	if rec.Status.IsFailure() {
		level = zapcore.WarnLevel
	}
	ce := s.logger.Check(level, "call recorded")
	if ce == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("record_id", rec.ID),
		zap.String("trace_id", rec.TraceID),
		zap.Stringer("unit", rec.Unit),
		zap.String("status", string(rec.Status)),
		zap.Duration("duration", rec.Duration()),
		zap.Strings("args", rec.Bound.Names()),
	}
	if rec.ParentID != "" {
		fields = append(fields, zap.String("parent_id", rec.ParentID))
	}
	if rec.AppID != "" {
		fields = append(fields, zap.String("app_id", rec.AppID))
	}
	if rec.MainInput != "" {
		fields = append(fields, zap.String("main_input", rec.MainInput))
	}
	if rec.Error != "" {
		fields = append(fields, zap.String("error", rec.Error))
	}
	ce.Write(fields...)
	return nil
}
