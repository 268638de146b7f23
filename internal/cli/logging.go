package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// slogManager is a [slog.Handler] passing every record on to a set of named
// handlers, so that a console and a log file can be written at once.
type slogManager struct {
	sync.RWMutex
	handlers map[string]slog.Handler
}

func newSlogManager() *slogManager {
	return &slogManager{
		handlers: make(map[string]slog.Handler),
	}
}

func (m *slogManager) Enabled(ctx context.Context, level slog.Level) bool {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (m *slogManager) Handle(ctx context.Context, r slog.Record) error {
	m.RLock()
	defer m.RUnlock()

	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}

	return nil
}

func (m *slogManager) WithAttrs(attrs []slog.Attr) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	derived := newSlogManager()
	for name, h := range m.handlers {
		derived.handlers[name] = h.WithAttrs(attrs)
	}

	return derived
}

func (m *slogManager) WithGroup(name string) slog.Handler {
	m.RLock()
	defer m.RUnlock()

	derived := newSlogManager()
	for handlerName, h := range m.handlers {
		derived.handlers[handlerName] = h.WithGroup(name)
	}

	return derived
}

func (m *slogManager) AddHandler(name string, handler slog.Handler) {
	m.Lock()
	defer m.Unlock()

	m.handlers[name] = handler
}

// setupLogging installs the default logger: a console handler and, if a log
// file is given, a JSON handler appending to it at debug level. The returned
// function closes the log file.
func setupLogging(console io.Writer, verbose bool, logFile string) (func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	manager := newSlogManager()
	manager.AddHandler("console", tint.NewHandler(console, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(console),
	}))

	closer := func() error { return nil }

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640) //nolint:mnd
		if err != nil {
			return closer, fmt.Errorf("(cli-logging) %w", err)
		}
		manager.AddHandler("file", slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = f.Close
	}

	slog.SetDefault(slog.New(manager))

	return closer, nil
}
