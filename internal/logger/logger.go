// Package logger prints campfire's diagnostic output. Logging is off by
// default and enabled with --verbose; everything goes to stderr so command
// output stays clean for piping, and answers are never mixed with
// diagnostics.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	enabled bool
	out     io.Writer = os.Stderr
)

// SetVerbose enables or disables diagnostic output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = v
}

// IsVerbose reports whether diagnostic output is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetOutput redirects diagnostic output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func logf(level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	fmt.Fprintf(out, level+" "+format+"\n", args...)
}

// Debug traces fine-grained pipeline steps: queries, offsets, tool calls.
func Debug(format string, args ...any) {
	logf("debug:", format, args...)
}

// Info reports normal progress: files ingested, backends selected.
func Info(format string, args ...any) {
	logf("info:", format, args...)
}

// Warn reports recoverable problems: failed reloads, skipped files,
// fallbacks taken.
func Warn(format string, args ...any) {
	logf("warn:", format, args...)
}

// Section marks a phase boundary in verbose output, such as the start of an
// orchestration turn.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return
	}
	fmt.Fprintf(out, "\n-- %s --\n", name)
}
