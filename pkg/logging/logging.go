// Package logging builds the zerolog logger used by the CLI, the HTTP API
// and the chunk archive.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssargent/pngframe/pkg/config"
)

// New returns a logger writing to w at the configured level. An unknown
// level falls back to info.
func New(cfg config.Logging, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("app", "pngframe").Logger()
}
