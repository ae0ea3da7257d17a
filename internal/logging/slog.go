package logging

import (
	"context"
	"log/slog"

	"github.com/dxta-dev/clankers/internal/types"
)

// slogHandler adapts a Logger to log/slog so daemon-internal code can log
// through the standard interface into the unified rotating file.
type slogHandler struct {
	logger    *Logger
	component string
	attrs     []slog.Attr
}

// NewSlogHandler returns an slog.Handler writing into l with the given
// component name.
func NewSlogHandler(l *Logger, component string) slog.Handler {
	return &slogHandler{logger: l, component: component}
}

func slogLevel(lvl slog.Level) Level {
	switch {
	case lvl >= slog.LevelError:
		return LevelError
	case lvl >= slog.LevelWarn:
		return LevelWarn
	case lvl >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func (h *slogHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return slogLevel(lvl) >= h.logger.MinLevel()
}

func (h *slogHandler) Handle(_ context.Context, rec slog.Record) error {
	entry := types.LogEntry{
		Level:     slogLevel(rec.Level).String(),
		Component: h.component,
		Message:   rec.Message,
	}
	ctxMap := make(map[string]any, rec.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		ctxMap[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == "requestId" {
			entry.RequestID = a.Value.String()
			return true
		}
		ctxMap[a.Key] = a.Value.Any()
		return true
	})
	if len(ctxMap) > 0 {
		entry.Context = ctxMap
	}
	return h.logger.Write(entry)
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &slogHandler{logger: h.logger, component: h.component, attrs: merged}
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	// Groups are flattened; the unified log schema has a single context map.
	return h
}
