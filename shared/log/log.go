package log

import (
	"context"
	"github.com/hyperdxio/opentelemetry-go/otelzap"
	"github.com/hyperdxio/opentelemetry-logs-go/exporters/otlp/otlplogs"
	sdk "github.com/hyperdxio/opentelemetry-logs-go/sdk/logs"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
)

// InitLogger writes to the console and, when an OTLP exporter can be
// created, to the log pipeline as well. Both cores share the level.
func InitLogger(ctx context.Context, name string, level zapcore.Level) *zap.Logger {
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		level,
	)

	logExporter, err := otlplogs.NewExporter(ctx)
	if err != nil {
		logger := zap.New(console).Named(name)
		logger.Warn("OTLP log export disabled", zap.Error(err))
		return logger
	}

	loggerProvider := sdk.NewLoggerProvider(
		sdk.WithBatcher(logExporter),
	)

	core := zapcore.NewTee(
		levelFilter{Core: otelzap.NewOtelCore(loggerProvider), level: level},
		console,
	)

	return zap.New(core).Named(name)
}

// levelFilter drops entries below level before they reach the wrapped core.
type levelFilter struct {
	zapcore.Core
	level zapcore.Level
}

func (l levelFilter) Enabled(lvl zapcore.Level) bool {
	return lvl >= l.level && l.Core.Enabled(lvl)
}

func (l levelFilter) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !l.Enabled(e.Level) {
		return ce
	}
	return l.Core.Check(e, ce)
}

func (l levelFilter) With(fields []zapcore.Field) zapcore.Core {
	return levelFilter{Core: l.Core.With(fields), level: l.level}
}

// LoggerWithTrace tags logger with the trace and span of ctx, if any.
func LoggerWithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanContext.TraceID().String()),
		zap.String("span_id", spanContext.SpanID().String()),
	)
}
