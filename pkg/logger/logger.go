// Package logger installs the process-wide slog handler and carries request
// IDs through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type requestIDKey struct{}

// level is shared by every handler Setup installs so it can be changed at
// runtime.
var level = new(slog.LevelVar)

// SetupWriter installs a text or JSON handler writing to w as the slog
// default and returns it. Debug level also records source locations.
func SetupWriter(w io.Writer, levelName, format string) *slog.Logger {
	level.Set(ParseLevel(levelName))
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level.Level() <= slog.LevelDebug,
	}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// SetLevel changes the level of the installed handler.
func SetLevel(levelName string) {
	level.Set(ParseLevel(levelName))
}

// ParseLevel accepts slog level names in any case, including offsets such as
// "debug+2". Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns the default logger, tagged with the request ID when ctx
// carries one.
func FromContext(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}
