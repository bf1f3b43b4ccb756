package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// severityHandler wraps a handler built by createJSONOrTextHandler, whose
// ReplaceAttr renames slog's level key to "severity" (and names the trace
// level TRACE), so output reads `severity=ERROR` the way gcsfuse's
// fixed-width screen diagnostics do.
type severityHandler struct {
	slog.Handler
	prefix string
}

func (h *severityHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Message = h.prefix + r.Message
	return h.Handler.Handle(ctx, r)
}

type loggerFactory struct {
	format string // "text" or "json"
}

var defaultLoggerFactory = &loggerFactory{format: "text"}

var defaultLogger = slog.New(
	defaultLoggerFactory.createJSONOrTextHandler(os.Stderr, new(slog.LevelVar), ""),
)

func (f *loggerFactory) createJSONOrTextHandler(w io.Writer, levelVar *slog.LevelVar, prefix string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				a.Key = "severity"
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == slog.Level(levelTrace) {
					a.Value = slog.StringValue(TRACE)
				}
			}
			return a
		},
	}

	var base slog.Handler
	if f.format == "json" {
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}
	return &severityHandler{Handler: base, prefix: prefix}
}

func setLoggingLevel(level string, levelVar *slog.LevelVar) {
	levelVar.Set(slog.Level(severityToLevel(level)))
}

// Options configures the process-wide logger. Format is "text" or "json";
// Level is one of the severity constants above; LogFile, when non-empty,
// routes output through a rotating gopkg.in/natefinch/lumberjack.v2 sink
// instead of stderr.
type Options struct {
	Format  string
	Level   string
	LogFile string
	MaxSize int // megabytes, forwarded to lumberjack.Logger.MaxSize
}

// Init replaces the process-wide logger according to opts. Safe to call
// once at boot; not safe for concurrent use with the logging functions
// below (matches gcsfuse's own single-assignment boot-time init).
func Init(opts Options) {
	if opts.Format == "" {
		opts.Format = "text"
	}
	defaultLoggerFactory.format = opts.Format

	var w io.Writer = os.Stderr
	if opts.LogFile != "" {
		maxSize := opts.MaxSize
		if maxSize == 0 {
			maxSize = 10
		}
		w = &lumberjack.Logger{Filename: opts.LogFile, MaxSize: maxSize}
	}

	levelVar := new(slog.LevelVar)
	setLoggingLevel(opts.Level, levelVar)
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(w, levelVar, ""))
}

func Tracef(format string, args ...any) {
	defaultLogger.Log(context.Background(), slog.Level(levelTrace), fmt.Sprintf(format, args...))
}

func Debugf(format string, args ...any) {
	defaultLogger.Debug(fmt.Sprintf(format, args...))
}

func Infof(format string, args ...any) {
	defaultLogger.Info(fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	defaultLogger.Error(fmt.Sprintf(format, args...))
}

// Fatalf logs at ERROR and then terminates the process. Reserved for the
// catastrophic-kernel-error class of spec §7 (corrupt scheduler state, out
// of pinned memory during boot) — never called for task-fatal errors, which
// only exit the offending task.
func Fatalf(format string, args ...any) {
	Errorf(format, args...)
	os.Exit(1)
}
