// Package logging builds the diagnostic logger. User-facing output goes to
// stdout through fmt; this logger writes to stderr.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// New returns a leveled logger writing to w. format is "text" or "json".
func New(w io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "todograph",
		ReportTimestamp: lvl == log.DebugLevel,
	})

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(log.TextFormatter)
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}
