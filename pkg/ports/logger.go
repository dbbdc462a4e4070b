// Package ports defines the interfaces between the pipelines and their collaborators.
package ports

import (
	"fmt"
	"strings"
)

// LogLevel is the severity of a log message.
type LogLevel int

const (
	// LevelDebug is used by components (encoders, muxer, importer).
	LevelDebug LogLevel = iota
	// LevelInfo is used by the orchestrator and the CLI.
	LevelInfo
	// LevelWarn reports fallbacks and failed debug output.
	LevelWarn
	// LevelError reports failures that end an export or import.
	LevelError
	// LevelQuiet suppresses all output.
	LevelQuiet
)

var levelNames = [...]string{"debug", "info", "warn", "error", "quiet"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLogLevel parses a level name, case-insensitively. "warning" is
// accepted for warn.
func ParseLogLevel(s string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		return LevelWarn, nil
	}
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger logs translatable messages. msg is a go-l10n key and a format
// string for args.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a logger whose messages carry component,
	// nested under the receiver's own component if it has one.
	WithComponent(component string) Logger
}
