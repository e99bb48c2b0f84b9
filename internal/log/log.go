package log

import (
	"io"
	"log"
	"os"
)

type Level int

const (
	LevelWarn Level = iota
	LevelInfo
	LevelDebug
)

type Logger struct {
	level Level
	warn  *log.Logger
	info  *log.Logger
	debug *log.Logger
}

func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		level: level,
		warn:  log.New(out, "WARN: ", log.LstdFlags),
		info:  log.New(out, "INFO: ", log.LstdFlags),
		debug: log.New(out, "DEBUG: ", log.LstdFlags),
	}
}

// ForVerbosity maps the --verbose/--quiet flags onto a level.
func ForVerbosity(verbose, quiet bool) Level {
	switch {
	case verbose:
		return LevelDebug
	case quiet:
		return LevelWarn
	default:
		return LevelInfo
	}
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.warn.Printf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil || l.level < LevelInfo {
		return
	}
	l.info.Printf(format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.level < LevelDebug {
		return
	}
	l.debug.Printf(format, args...)
}
