// Package observability provides structured logging and process
// metrics for the bot.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// requestIDKey carries the correlation ID the api middleware and the
// bot update loop attach to each unit of work.
const requestIDKey contextKey = "requestID"

// Logger is the structured logging interface used across the bot.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// *Context variants append the request ID from ctx, if present.
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	// With returns a new Logger carrying the given attributes.
	With(args ...any) Logger
	// WithComponent returns a new Logger with the component field set.
	WithComponent(name string) Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the output format (json, text).
	Format string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stdout}
}

// ConfigFromEnv creates a Config from environment variables.
// LUNCHBREAKBOT_LOG_LEVEL: debug, info, warn, error (default: info)
// LUNCHBREAKBOT_LOG_FORMAT: json, text (default: json)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if level := os.Getenv("LUNCHBREAKBOT_LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv("LUNCHBREAKBOT_LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	return cfg
}

type slogLogger struct {
	slogger *slog.Logger
}

// NewLogger creates a Logger with the given configuration.
func NewLogger(cfg Config) Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(cfg.Output, opts)
	default:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &slogLogger{slogger: slog.New(handler)}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.slogger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.slogger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.slogger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.slogger.Error(msg, args...) }

func (l *slogLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, appendContextFields(ctx, args)...)
}

func (l *slogLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, appendContextFields(ctx, args)...)
}

func (l *slogLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, appendContextFields(ctx, args)...)
}

func (l *slogLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, appendContextFields(ctx, args)...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{slogger: l.slogger.With(args...)}
}

func (l *slogLogger) WithComponent(name string) Logger {
	return l.With("component", name)
}

func appendContextFields(ctx context.Context, args []any) []any {
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		args = append(args, "request_id", reqID)
	}
	return args
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
