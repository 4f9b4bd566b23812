package sprite

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).(nopHandler); !ok {
		t.Error("WithAttrs did not return nopHandler")
	}
	if _, ok := h.WithGroup("g").(nopHandler); !ok {
		t.Error("WithGroup did not return nopHandler")
	}
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger should not be enabled for %v", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(custom)

	if Logger() != custom {
		t.Error("Logger() did not return the custom logger")
	}
	Logger().Info("sheet loaded", "id", "abc")
	if !strings.Contains(buf.String(), "sheet loaded") {
		t.Errorf("log output = %q, want it to contain 'sheet loaded'", buf.String())
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(slog.Default())
	SetLogger(nil)

	if l := Logger(); l == nil || l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should install a disabled logger")
	}
}

func TestLoggerConcurrentAccess(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Logger().Debug("concurrent read")
		}()
		go func() {
			defer wg.Done()
			SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
			SetLogger(nil)
		}()
	}
	wg.Wait()
}
