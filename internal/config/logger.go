package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// SetupLogger builds the process-wide slog logger. Records are rendered by a
// charmbracelet logger using the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	return NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
}

// NewLogger returns a slog logger writing to w. Unknown level or format values
// fall back to info and text.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, err := parseLevel(level)
	if err != nil {
		lvl = charmlog.InfoLevel
	}
	formatter, err := parseFormatter(format)
	if err != nil {
		formatter = charmlog.TextFormatter
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           lvl,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) (charmlog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return charmlog.DebugLevel, nil
	case "info":
		return charmlog.InfoLevel, nil
	case "warn", "warning":
		return charmlog.WarnLevel, nil
	case "error":
		return charmlog.ErrorLevel, nil
	default:
		return charmlog.InfoLevel, fmt.Errorf("unsupported level %q (debug, info, warn, error)", level)
	}
}

func parseFormatter(format string) (charmlog.Formatter, error) {
	switch strings.ToLower(format) {
	case "text":
		return charmlog.TextFormatter, nil
	case "json":
		return charmlog.JSONFormatter, nil
	case "logfmt":
		return charmlog.LogfmtFormatter, nil
	default:
		return charmlog.TextFormatter, fmt.Errorf("unsupported format %q (text, json, logfmt)", format)
	}
}
