// Package logging provides the levelled logger used by the daemon, the CLI and
// the in-process core.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/corebridge/corebridge/internal/core"
)

// Logger implements core.Logger on top of charmbracelet/log. The tag passed
// to Log becomes the line prefix.
type Logger struct {
	base *log.Logger
}

// New returns a Logger writing to w at the named level ("debug", "info",
// "warn", "error"). Unknown names fall back to info.
func New(w io.Writer, level string) *Logger {
	l := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	return &Logger{base: l}
}

// ParseLevel maps a level name to a charmbracelet/log level.
func ParseLevel(name string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Log implements core.Logger.
func (l *Logger) Log(level core.Level, tag, msg string) {
	b := l.base
	if tag != "" {
		b = b.WithPrefix(tag)
	}
	b.Log(toLevel(level), msg)
}

// Printf logs at info without a tag.
func (l *Logger) Printf(format string, args ...any) {
	l.base.Infof(format, args...)
}

// Errorf logs at error without a tag.
func (l *Logger) Errorf(format string, args ...any) {
	l.base.Errorf(format, args...)
}

func toLevel(level core.Level) log.Level {
	switch level {
	case core.LevelDebug:
		return log.DebugLevel
	case core.LevelWarn:
		return log.WarnLevel
	case core.LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
