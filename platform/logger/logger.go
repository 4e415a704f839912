// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		return l.WithRequestID(requestID)
	}

	return l
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// OutboundSMS logs an outbound SMS attempt.
func (l *Logger) OutboundSMS(kind, to string, err error) {
	if err != nil {
		l.Error("sms_send_failed",
			slog.String("kind", kind),
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Info("sms_sent",
		slog.String("kind", kind),
		slog.String("to", to),
	)
}

// JobRun logs the outcome of a scheduled batch job run.
func (l *Logger) JobRun(job string, processed, sent, failed int) {
	l.Info("job_run",
		slog.String("job", job),
		slog.Int("processed", processed),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// WebhookDropped logs an inbound webhook event that was acknowledged but
// produced no side effects (duplicates, non-qualifying call statuses).
func (l *Logger) WebhookDropped(kind, reason, providerID string) {
	l.Info("webhook_dropped",
		slog.String("kind", kind),
		slog.String("reason", reason),
		slog.String("provider_id", providerID),
	)
}
