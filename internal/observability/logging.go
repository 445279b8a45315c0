// Package observability carries request-scoped logging context through the pipeline.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	SessionID string
	AssetName string
	RequestID string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithSessionID adds a locator session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	lc := extractLogContext(ctx)
	lc.SessionID = sessionID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithAssetName adds the asset currently being resolved to the context.
func WithAssetName(ctx context.Context, name string) context.Context {
	lc := extractLogContext(ctx)
	lc.AssetName = name
	return context.WithValue(ctx, logContextKey, lc)
}

// WithRequestID adds an HTTP request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	lc := extractLogContext(ctx)
	lc.RequestID = requestID
	return context.WithValue(ctx, logContextKey, lc)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// Attrs returns slog attributes for every field set on the context's LogContext.
func Attrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := make([]slog.Attr, 0, 3)

	if lc.SessionID != "" {
		attrs = append(attrs, logfields.SessionID(lc.SessionID))
	}
	if lc.AssetName != "" {
		attrs = append(attrs, logfields.AssetName(lc.AssetName))
	}
	if lc.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", lc.RequestID))
	}
	return attrs
}

// LogAttrs logs msg on logger (slog.Default when nil) with the context's
// attributes prepended to attrs.
func LogAttrs(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	all := append(Attrs(ctx), attrs...)
	logger.LogAttrs(ctx, level, msg, all...)
}

// Warn logs at warn level with context attributes.
func Warn(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	LogAttrs(ctx, logger, slog.LevelWarn, msg, attrs...)
}

// Error logs at error level with context attributes.
func Error(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	LogAttrs(ctx, logger, slog.LevelError, msg, attrs...)
}

// Debug logs at debug level with context attributes.
func Debug(ctx context.Context, logger *slog.Logger, msg string, attrs ...slog.Attr) {
	LogAttrs(ctx, logger, slog.LevelDebug, msg, attrs...)
}
