// Package logging builds the slog loggers used by the acctool binary.
//
// Text output goes through tint for colored, human-readable lines. JSON output
// uses the standard slog JSON handler so it can be shipped to a collector.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configure New
type Options struct {
	// Format is FormatText or FormatJSON; empty means text
	Format string
	Level  slog.Level
	// NoColor disables tint's ANSI colors, e.g. when stderr is not a terminal
	NoColor bool
}

// New returns a logger writing to w
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
			NoColor:    opts.NoColor,
		})), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: must be %q or %q", opts.Format, FormatText, FormatJSON)
	}
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
