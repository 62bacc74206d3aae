package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger provides structured logging with helpers for the service's recurring events
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger on stdout at info level
func NewLogger() *Logger {
	return NewLoggerWithLevel(os.Stdout, slog.LevelInfo)
}

// NewLoggerWithLevel creates a JSON logger writing to w at the given level
func NewLoggerWithLevel(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// RFC3339 timestamps under "timestamp"
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// ParseLevel maps a config string to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// AnalysisLogger logs a completed analysis
func (l *Logger) AnalysisLogger(subject, source string, confidence float64, verdict bool, factorCount int, duration time.Duration) {
	l.Info("Analysis Completed",
		"subject", subject,
		"source", source,
		"confidence", confidence,
		"verdict", verdict,
		"factors", factorCount,
		"duration_ms", duration.Milliseconds(),
	)
}

// APIErrorLogger logs API errors with context
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
	)
}

// ExternalAPILogger logs metadata backend calls
func (l *Logger) ExternalAPILogger(backend, target string, duration time.Duration, cacheHit, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "Metadata Fetch",
		"backend", backend,
		"url", target,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
		"success", success,
	)
}

// SystemLogger logs lifecycle events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

var startTime = time.Now()
