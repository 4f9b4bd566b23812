package sprite

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while render loops are logging.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for sprite and its sub-packages.
// By default, sprite produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore silence.
//
// Log levels used by sprite:
//   - [slog.LevelDebug]: per-load timings, frame redraws after parameter changes
//   - [slog.LevelInfo]: sheet lifecycle (loaded, cleared, superseded)
//   - [slog.LevelWarn]: sheet inspection findings, recovered draw panics
//   - [slog.LevelError]: decode, processing and timeout failures
//
// Example:
//
//	sprite.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by sprite.
// Sub-packages (internal/server, internal/termview) call this to share the
// same logger configuration.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
