package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/geo-reverse-search/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// LogFileName is the file written inside EP_LOG_DIR.
const LogFileName = "reverse-search.log"

// NewLogger builds the job logger from LOG_LEVEL and LOG_FORMAT and sets it as
// the slog default. When LogDir is set, records are also appended to
// LogDir/reverse-search.log; the returned closer releases that file.
func NewLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if cfg.LogDir == "" {
		return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat), nopCloser{}, nil
	}

	path := filepath.Join(cfg.LogDir, LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := newLogger(io.MultiWriter(os.Stdout, f), cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger, f, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
