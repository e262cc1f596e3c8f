// Package observability provides OpenTelemetry tracing, metrics, and structured logging
// with trace correlation for the revision aid.
package observability

import (
	"context"
	"errors"
	"os"

	"revisionaid/internal/config"
	contextutils "revisionaid/internal/utils"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps the zap logger with OpenTelemetry context support
type Logger struct {
	*zap.Logger
}

// NewLogger creates a new logger with OpenTelemetry context support and OTLP export
func NewLogger(cfg *config.OpenTelemetryConfig) *Logger {
	return NewLoggerWithLevel(cfg, zap.InfoLevel)
}

// ParseLevel maps a configured level name to a zap level, defaulting to info.
func ParseLevel(name string) zapcore.Level {
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zap.InfoLevel
	}
	return level
}

// NewLoggerWithLevel builds the console logger and, when an OTLP endpoint is
// configured, tees it into the OpenTelemetry log pipeline.
func NewLoggerWithLevel(cfg *config.OpenTelemetryConfig, level zapcore.Level) *Logger {
	if cfg == nil || !cfg.EnableLogging {
		return &Logger{Logger: zap.NewNop()}
	}

	zapLogger := newConsoleLogger(level)
	if cfg.Endpoint == "" {
		zapLogger.Info("OTLP log export not configured; logging to stdout only")
		return &Logger{Logger: zapLogger}
	}

	core, err := newOTLPCore(cfg)
	if err != nil {
		zapLogger.Error("OTLP log export unavailable, continuing with stdout", zap.Error(err), zap.String("endpoint", cfg.Endpoint))
		return &Logger{Logger: zapLogger}
	}

	zapLogger = zap.New(zapcore.NewTee(zapLogger.Core(), core))
	zapLogger.Info("OTLP log export configured", zap.String("endpoint", cfg.Endpoint), zap.String("protocol", cfg.Protocol))
	return &Logger{Logger: zapLogger}
}

// newConsoleLogger writes JSON to stdout, or the human readable development
// format when ENV=development.
func newConsoleLogger(level zapcore.Level) *zap.Logger {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.StacktraceKey = "stacktrace"
	if os.Getenv("ENV") == "development" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return zap.NewExample()
	}
	return zapLogger
}

// newOTLPCore exports log records over OTLP/gRPC through the otelzap bridge.
func newOTLPCore(cfg *config.OpenTelemetryConfig) (zapcore.Core, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []otlploggrpc.Option{
		otlploggrpc.WithEndpoint(cfg.Endpoint),
		otlploggrpc.WithHeaders(cfg.Headers),
	}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	provider := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exporter)),
		log.WithResource(res),
	)
	return otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(provider)), nil
}

// Debug logs a debug message with context
func (l *Logger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logWithContext(ctx, zap.DebugLevel, msg, fields...)
}

// Info logs an info message with context
func (l *Logger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logWithContext(ctx, zap.InfoLevel, msg, fields...)
}

// Warn logs a warning message with context
func (l *Logger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logWithContext(ctx, zap.WarnLevel, msg, fields...)
}

// Error logs err with msg. AppErrors also contribute their code and whether
// the caller may retry.
func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	extra := map[string]interface{}{}
	if err != nil {
		extra["error"] = err.Error()
		var appErr *contextutils.AppError
		if errors.As(err, &appErr) {
			extra["error_code"] = string(appErr.Code)
			extra["retryable"] = contextutils.IsRetryable(err)
		}
	}
	l.logWithContext(ctx, zap.ErrorLevel, msg, append(fields, extra)...)
}

// logWithContext writes one entry, adding the trace and span IDs of the
// active span so logs and traces can be joined.
func (l *Logger) logWithContext(ctx context.Context, level zapcore.Level, msg string, fields ...map[string]interface{}) {
	ce := l.Logger.Check(level, msg)
	if ce == nil {
		return
	}

	merged := mergeFields(fields...)
	if spanContext := trace.SpanContextFromContext(ctx); spanContext.IsValid() {
		merged["trace_id"] = spanContext.TraceID().String()
		merged["span_id"] = spanContext.SpanID().String()
	}

	zapFields := make([]zap.Field, 0, len(merged))
	for k, v := range merged {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	ce.Write(zapFields...)
}

// mergeFields flattens the field maps; later maps win on duplicate keys.
func mergeFields(fields ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	for _, m := range fields {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}
