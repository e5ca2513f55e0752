package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

type modulePrefixHandler struct {
	handler slog.Handler
	module  string
}

func (h *modulePrefixHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *modulePrefixHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	module := h.module
	var otherAttrs []slog.Attr

	for _, attr := range attrs {
		if attr.Key == "module" {
			module = attr.Value.String()
		} else {
			otherAttrs = append(otherAttrs, attr)
		}
	}

	return &modulePrefixHandler{
		handler: h.handler.WithAttrs(otherAttrs),
		module:  module,
	}
}

func (h *modulePrefixHandler) WithGroup(name string) slog.Handler {
	return &modulePrefixHandler{
		handler: h.handler.WithGroup(name),
		module:  h.module,
	}
}

func (h *modulePrefixHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.module != "" {
		newRecord := slog.NewRecord(r.Time, r.Level, "["+h.module+"] "+r.Message, r.PC)
		r.Attrs(func(a slog.Attr) bool {
			newRecord.AddAttrs(a)
			return true
		})
		return h.handler.Handle(ctx, newRecord)
	}

	return h.handler.Handle(ctx, r)
}

// level backs SetLevel; shared across every handler built by this
// package so LOG_LEVEL can be changed after startup without rebuilding
// the handler chain.
var level = new(slog.LevelVar)

func init() {
	// Setup slog with colored output and module prefix
	// must be imported by main before any other package's init() because they import this package
	level.Set(slog.LevelInfo)
	handler := &modulePrefixHandler{
		handler: tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	}
	slog.SetDefault(slog.New(handler))
}

// SetLevel sets the process-wide log level from the LOG_LEVEL values
// (debug, info, warn, error). Unrecognised values are ignored.
func SetLevel(name string) {
	switch name {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}
}
