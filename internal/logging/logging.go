package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup configures the default logger. In debug mode logs go to stderr;
// otherwise they are appended to file so the TUI keeps the terminal. The
// standard library logger is redirected to the same sink.
func Setup(level, file string, debug bool) (*log.Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)

	if !debug {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = f
		closer = f
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if debug {
		lvl = log.DebugLevel
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	if !debug {
		logger.SetFormatter(log.LogfmtFormatter)
	}

	log.SetDefault(logger)
	stdlog.SetOutput(logger.StandardLog().Writer())
	stdlog.SetFlags(0)

	return logger, closer, nil
}

// Discard returns a logger that drops everything, for tests and quiet
// one-shot commands.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
