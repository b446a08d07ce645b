package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"lexiscan.ai/cli/internal/application/ports"
)

// ConsoleLogger implements the LoggingGateway interface for stderr output.
type ConsoleLogger struct {
	mu    sync.Mutex
	out   io.Writer
	level ports.LogLevel
}

// NewConsoleLogger creates a logger writing to stderr at info level.
func NewConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{out: os.Stderr, level: ports.LogLevelInfo}
}

// NewConsoleLoggerWithWriter creates a logger with a custom writer, used in
// tests.
func NewConsoleLoggerWithWriter(out io.Writer) *ConsoleLogger {
	return &ConsoleLogger{out: out, level: ports.LogLevelInfo}
}

// Log writes a message with structured fields at the given level.
func (l *ConsoleLogger) Log(level ports.LogLevel, message string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if severity(level) < severity(l.level) {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[lexiscan] %s %-5s %s", time.Now().UTC().Format(time.RFC3339), level, message)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	fmt.Fprintln(l.out, b.String())
}

// SetLogLevel sets the logging level.
func (l *ConsoleLogger) SetLogLevel(level ports.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLogLevel returns the current logging level.
func (l *ConsoleLogger) GetLogLevel() ports.LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func severity(level ports.LogLevel) int {
	switch level {
	case ports.LogLevelDebug:
		return 0
	case ports.LogLevelInfo:
		return 1
	case ports.LogLevelWarn:
		return 2
	case ports.LogLevelError:
		return 3
	default:
		return 1
	}
}
