// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// ColorMode controls ANSI colouring of console output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Options configures Init.
type Options struct {
	File    string    // append-only log file; empty disables the file sink
	Console bool      // write to stdout
	Color   ColorMode // console colouring, auto by default
	Level   LogLevel
}

type Logger struct {
	console  [4]*log.Logger
	file     [4]*log.Logger
	handle   *os.File
	minLevel LogLevel
}

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.RWMutex
)

var levelNames = [4]string{"[DEBUG] ", "[INFO]  ", "[WARN]  ", "[ERROR] "}
var levelColors = [4]string{colorGray, colorReset, colorYellow, colorRed}

// ensureInitialized creates a console-only logger if Init was never called
func ensureInitialized() {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if defaultLogger == nil {
			defaultLogger = newLogger(os.Stdout, nil, shouldColor(ColorAuto, os.Stdout), DEBUG)
		}
	})
}

// Init replaces the process logger. At least one of Console or File must be set.
func Init(opts Options) error {
	var console io.Writer
	if opts.Console {
		console = os.Stdout
	}

	var handle *os.File
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		handle = f
	}

	if console == nil && handle == nil {
		return fmt.Errorf("no output destination specified")
	}

	l := newLogger(console, handle, shouldColor(opts.Color, os.Stdout), opts.Level)

	once.Do(func() {})
	mu.Lock()
	old := defaultLogger
	defaultLogger = l
	mu.Unlock()

	if old != nil && old.handle != nil {
		old.handle.Close()
	}
	return nil
}

func newLogger(console io.Writer, handle *os.File, color bool, level LogLevel) *Logger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	l := &Logger{handle: handle, minLevel: level}
	for lvl := range levelNames {
		if console != nil {
			prefix := levelNames[lvl]
			if color {
				prefix = levelColors[lvl] + prefix + colorReset
			}
			l.console[lvl] = log.New(console, prefix, flags)
		}
		if handle != nil {
			l.file[lvl] = log.New(handle, levelNames[lvl], flags)
		}
	}
	return l
}

// shouldColor resolves a ColorMode against the console stream. NO_COLOR and a
// dumb terminal disable colour in auto mode.
func shouldColor(mode ColorMode, f *os.File) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ParseLevel maps a config string (debug, info, warn, error) to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// SetLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR)
// Messages below this level will not be logged
func SetLevel(level LogLevel) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.minLevel = level
}

// Close closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.handle != nil {
		defaultLogger.handle.Close()
		defaultLogger.handle = nil
		defaultLogger.file = [4]*log.Logger{}
	}
}

func output(level LogLevel, msg string) {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()

	l := defaultLogger
	if level < l.minLevel {
		return
	}
	// depth 3: output -> exported helper -> caller
	if c := l.console[level]; c != nil {
		c.Output(3, msg)
	}
	if f := l.file[level]; f != nil {
		f.Output(3, msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) { output(DEBUG, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { output(DEBUG, fmt.Sprintf(format, v...)) }

// Info logs an info message
func Info(v ...interface{}) { output(INFO, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { output(INFO, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...interface{}) { output(WARN, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { output(WARN, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...interface{}) { output(ERROR, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { output(ERROR, fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	output(ERROR, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	output(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
