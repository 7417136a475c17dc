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
	// SubjectKey is the context key for the authenticated token subject
	SubjectKey contextKey = "subject"
	// TaskIDKey is the context key for the background task ID
	TaskIDKey contextKey = "task_id"
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
// Supports request_id, subject and task_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if subject, ok := ctx.Value(SubjectKey).(string); ok && subject != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("subject", subject)),
		}
	}

	if taskID, ok := ctx.Value(TaskIDKey).(string); ok && taskID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("task_id", taskID)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// WithComponent returns a logger tagged with a component name
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("component", name)),
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

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

// IngestionCompleted logs a successful refresh of a date range
func (l *Logger) IngestionCompleted(startDate, endDate string, written, inserted, updated int) {
	l.Info("ingestion_completed",
		slog.String("start_date", startDate),
		slog.String("end_date", endDate),
		slog.Int("written", written),
		slog.Int("inserted", inserted),
		slog.Int("updated", updated),
	)
}

// IngestionFailed logs a refresh that was aborted
func (l *Logger) IngestionFailed(startDate, endDate, kind string, err error) {
	l.Warn("ingestion_failed",
		slog.String("start_date", startDate),
		slog.String("end_date", endDate),
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}
