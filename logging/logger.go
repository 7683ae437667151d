// Package logging provides structured logging for the PillGuide API: an slog
// logger writing to console and a weekly rotating file, package-level helpers,
// and an HTTP request logging middleware.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// weeklyWriter appends to one log file per ISO week, rotating lazily on the
// first write of a new week.
type weeklyWriter struct {
	logDir      string
	mu          sync.Mutex
	currentFile *os.File
	currentWeek string
}

func newWeeklyWriter(logDir string) *weeklyWriter {
	return &weeklyWriter{logDir: logDir}
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (w *weeklyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	week := weekKey(time.Now())
	if w.currentFile == nil || week != w.currentWeek {
		if w.currentFile != nil {
			_ = w.currentFile.Close()
		}

		logPath := filepath.Join(w.logDir, fmt.Sprintf("app-%s.log", week))
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return 0, fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		w.currentFile = file
		w.currentWeek = week
	}

	return w.currentFile.Write(p)
}

// SetupLogger builds the application logger. Output goes to stderr and, when
// the log directory can be created, to a weekly rotating file.
func SetupLogger(logDir, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	writers := []io.Writer{os.Stderr}
	if err := os.MkdirAll(logDir, 0755); err == nil {
		writers = append(writers, newWeeklyWriter(logDir))
	} else {
		fmt.Fprintf(os.Stderr, "could not create log directory %s: %v\n", logDir, err)
	}

	return slog.New(slog.NewTextHandler(io.MultiWriter(writers...), opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
