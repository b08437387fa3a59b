// Package log routes planner logging through glog, or through slog when
// the --log-fmt flag is given.
package log

import (
	"context"
	"fmt"
	"github.com/golang/glog"
	"github.com/spf13/pflag"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	logFormat string
	logLevel  string

	structured atomic.Bool
)

var Flush = glog.Flush

func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&logFormat, "log-fmt", "json", "structured log format: json or logfmt")
	fs.StringVar(&logLevel, "log-level", "info", "minimum structured log level: debug, info, warn or error")
}

// Init switches to structured logging if --log-fmt was set on fs.
func Init(fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	f := fs.Lookup("log-fmt")
	if f == nil || !f.Changed {
		return nil
	}
	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	handler, err := newHandler(logFormat, &slog.HandlerOptions{Level: level})
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	structured.Store(true)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log-level %q: expected debug, info, warn or error", s)
	}
}

func newHandler(format string, opts *slog.HandlerOptions) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts), nil
	case "logfmt":
		return slog.NewTextHandler(os.Stderr, opts), nil
	default:
		return nil, fmt.Errorf("invalid log-fmt %q: expected json or logfmt", format)
	}
}

func logS(level slog.Level, msg string, args ...any) {
	if structured.Load() {
		slog.Default().Log(context.Background(), level, msg, args...)
		return
	}
	args = append([]any{msg, " "}, args...)
	switch level {
	case slog.LevelDebug:
		if glog.V(1) {
			glog.InfoDepth(2, args...)
		}
	case slog.LevelWarn:
		glog.WarningDepth(2, args...)
	case slog.LevelError:
		glog.ErrorDepth(2, args...)
	default:
		glog.InfoDepth(2, args...)
	}
}

func InfoS(msg string, args ...any)  { logS(slog.LevelInfo, msg, args...) }
func WarnS(msg string, args ...any)  { logS(slog.LevelWarn, msg, args...) }
func DebugS(msg string, args ...any) { logS(slog.LevelDebug, msg, args...) }
func ErrorS(msg string, args ...any) { logS(slog.LevelError, msg, args...) }

// SetLogger installs logger for structured output and returns a function
// restoring the previous state. Used by tests.
func SetLogger(logger *slog.Logger) func() {
	prevEnabled := structured.Load()
	prev := slog.Default()
	slog.SetDefault(logger)
	structured.Store(true)
	return func() {
		slog.SetDefault(prev)
		structured.Store(prevEnabled)
	}
}
