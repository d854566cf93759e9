// Package applog carries the application logger through a context.Context
// and adds the severities slog lacks: trace below debug, security and
// critical above error.
package applog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Severity levels, from least to most severe.
const (
	LevelTrace    = slog.Level(-8)
	LevelDebug    = slog.LevelDebug
	LevelInfo     = slog.LevelInfo
	LevelWarning  = slog.LevelWarn
	LevelError    = slog.LevelError
	LevelSecurity = slog.Level(10)
	LevelCritical = slog.Level(12)
)

var levelNames = map[slog.Level]string{
	LevelTrace:    "TRACE",
	LevelDebug:    "DEBUG",
	LevelInfo:     "INFO",
	LevelWarning:  "WARN",
	LevelError:    "ERROR",
	LevelSecurity: "SECURITY",
	LevelCritical: "CRITICAL",
}

// LevelName returns the display name of l.
func LevelName(l slog.Level) string {
	if n, ok := levelNames[l]; ok {
		return n
	}
	return l.String()
}

// ParseLevel accepts the names returned by LevelName, case-insensitively,
// plus "warning".
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "SECURITY":
		return LevelSecurity, nil
	case "CRITICAL":
		return LevelCritical, nil
	}
	return 0, fmt.Errorf("applog: unknown level %q", s)
}

// replaceLevel renders the custom levels by name instead of "DEBUG-4".
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(l))
		}
	}
	return a
}

// NewHandler returns a JSON or text handler writing to w at the given
// minimum level.
func NewHandler(w io.Writer, level slog.Leveler, json bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

type ctxKey struct{}

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger carried by ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// Trace logs at LevelTrace with the logger carried by ctx.
func Trace(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Log(ctx, LevelTrace, msg, args...)
}

// Security logs an authentication or authorization event.
func Security(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Log(ctx, LevelSecurity, msg, args...)
}

// Critical logs at the highest severity.
func Critical(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Log(ctx, LevelCritical, msg, args...)
}
