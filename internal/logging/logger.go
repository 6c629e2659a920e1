// Package logging provides formatted logging with color support and
// JSON-RPC message tracing for scan diagnostics.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// ANSI color codes used when color output is enabled.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Logger writes formatted scan progress and protocol traces.
type Logger struct {
	verbose bool
	color   bool
	jsonRPC bool
	mu      sync.Mutex
	out     io.Writer
}

// NewLogger creates a logger writing to stderr.
func NewLogger(verbose, color, jsonRPC bool) *Logger {
	return NewLoggerWithWriter(verbose, color, jsonRPC, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w. Used by tests to
// capture output.
func NewLoggerWithWriter(verbose, color, jsonRPC bool, w io.Writer) *Logger {
	return &Logger{
		verbose: verbose,
		color:   color,
		jsonRPC: jsonRPC,
		out:     w,
	}
}

func (l *Logger) write(prefix, color, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if l.color {
		fmt.Fprintf(l.out, "%s%s%s %s\n", color, prefix, colorReset, msg)
	} else {
		fmt.Fprintf(l.out, "%s %s\n", prefix, msg)
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write("[INFO]", colorCyan, format, args...)
}

// InfoVerbose logs an informational message only when verbose logging is on.
func (l *Logger) InfoVerbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.Info(format, args...)
}

// Success logs a success message.
func (l *Logger) Success(format string, args ...interface{}) {
	l.write("[OK]", colorGreen, format, args...)
}

// Warning logs a warning message.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.write("[WARN]", colorYellow, format, args...)
}

// WarningVerbose logs a warning only when verbose logging is on.
func (l *Logger) WarningVerbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.Warning(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("[ERROR]", colorRed, format, args...)
}

// Request logs an outgoing JSON-RPC request when json-rpc tracing is enabled.
func (l *Logger) Request(method string, params interface{}) {
	if !l.jsonRPC {
		return
	}
	l.write("[-->]", colorGray, "%s %s", method, PrettyJSON(params))
}

// Response logs an incoming JSON-RPC response when json-rpc tracing is enabled.
func (l *Logger) Response(method string, result interface{}) {
	if !l.jsonRPC {
		return
	}
	l.write("[<--]", colorGray, "%s %s", method, PrettyJSON(result))
}

// PrettyJSON pretty-prints a value as indented JSON for logging.
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
