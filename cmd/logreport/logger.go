package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const logTimeFormat = "2006.01.02 15:04:05"

// configureRuntimeLogger points the global logger at cfg.LogFile, or stderr
// when unset. The returned func closes the log file.
func configureRuntimeLogger(cfg appConfig) (func(), error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil || level == zerolog.NoLevel {
		return func() {}, fmt.Errorf("invalid log-level: %q", cfg.LogLevel)
	}
	zerolog.TimeFieldFormat = logTimeFormat

	var (
		out     io.Writer = os.Stderr
		cleanup           = func() {}
	)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return cleanup, fmt.Errorf("creating log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return cleanup, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		cleanup = func() { _ = f.Close() }
	} else if term.IsTerminal(int(os.Stderr.Fd())) {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: logTimeFormat}
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return cleanup, nil
}
