// Package logger provides levelled logging for the tally CLI.
// Warnings and errors are always written; debug and info messages
// only appear when verbose mode is enabled via the --verbose flag.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format            = "text"
	base              = newLogger(os.Stderr, false, "text")
)

func newLogger(w io.Writer, v bool, f string) *charmlog.Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: f == "json",
		Level:           charmlog.WarnLevel,
	})
	if v {
		l.SetLevel(charmlog.DebugLevel)
	}
	if f == "json" {
		l.SetFormatter(charmlog.JSONFormatter)
	} else {
		l.SetFormatter(charmlog.TextFormatter)
	}
	return l
}

// rebuild must be called with mu held.
func rebuild() {
	base = newLogger(output, verbose, format)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// SetFormat selects "text" or "json" output. Unknown values fall back to text.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if strings.EqualFold(f, "json") {
		format = "json"
	} else {
		format = "text"
	}
	rebuild()
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Debug(fmt.Sprintf(format, args...))
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info logs an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Error(fmt.Sprintf(format, args...))
}
