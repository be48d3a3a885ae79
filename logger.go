package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Logger is the logging interface every engine component receives at
// construction. Nothing in the engine writes to a process-global logger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LogLevel is the minimum severity a LeveledLogger emits.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel maps a config/flag string to a LogLevel. Unknown values
// fall back to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error", "quiet":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	debugColor = color.New(color.FgCyan)
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
)

func init() {
	// The color package decides globally from os.Stdout; each logger gates
	// color itself based on its own writer.
	debugColor.EnableColor()
	infoColor.EnableColor()
	warnColor.EnableColor()
	errorColor.EnableColor()
}

// LeveledLogger writes timestamped lines to a single writer, coloring the
// level tag when the writer is a terminal.
type LeveledLogger struct {
	mu    sync.Mutex
	out   io.Writer
	level LogLevel
	color bool
}

// NewLogger builds a LeveledLogger for out. Color is enabled only when out
// is a TTY.
func NewLogger(level LogLevel, out io.Writer) *LeveledLogger {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &LeveledLogger{out: out, level: level, color: useColor}
}

func (l *LeveledLogger) logf(lv LogLevel, tag string, c *color.Color, format string, args ...interface{}) {
	if lv < l.level {
		return
	}
	label := tag
	if l.color {
		label = c.Sprint(tag)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %-5s %s\n", time.Now().Format("15:04:05.000"), label, fmt.Sprintf(format, args...))
}

func (l *LeveledLogger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, "DEBUG", debugColor, format, args...)
}

func (l *LeveledLogger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, "INFO", infoColor, format, args...)
}

func (l *LeveledLogger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, "WARN", warnColor, format, args...)
}

func (l *LeveledLogger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, "ERROR", errorColor, format, args...)
}

// NopLogger discards everything. Handy for tests and library callers that
// do not care about diagnostics.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
