// Package logger provides the process-wide structured logger for expdb.
// Logs go to stderr (or a file) so they never mix with command output on stdout.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Logger is the global logger instance.
var Logger *log.Logger

// LevelEnv names the environment variable consulted when no level flag is given.
const LevelEnv = "EXPDB_LOG_LEVEL"

var output io.Writer = os.Stderr

func init() {
	Logger = newLogger(os.Stderr, log.InfoLevel)
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: false,
		Level:           level,
	})
	l.SetStyles(levelStyles())
	return l
}

// Configure sets level and destination. The level flag wins over EXPDB_LOG_LEVEL,
// which wins over the default of "info". An empty logFile means stderr.
func Configure(logLevel, logFile string) error {
	level := logLevel
	if level == "" {
		level = os.Getenv(LevelEnv)
	}
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = file
	}

	output = w
	Logger = newLogger(w, parsed)
	return nil
}

// SetOutput redirects the global logger, keeping its level.
func SetOutput(w io.Writer) {
	output = w
	Logger = newLogger(w, Logger.GetLevel())
}

// ParseLevel converts a level name to a log.Level. The empty string means info.
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "fatal":
		return log.FatalLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level %q (use debug|info|warn|error|fatal)", level)
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

// CommandExecution logs a subcommand invocation for debugging.
func CommandExecution(command string, args []string) {
	Debug("Executing command", "command", command, "args", args)
}

// StoreOperation logs a storage backend call for debugging.
func StoreOperation(backend, operation string, keyvals ...interface{}) {
	Debug("Store operation", append([]interface{}{"store", backend, "operation", operation}, keyvals...)...)
}

// NewStyledLogger creates a component logger that shares the global level and destination.
func NewStyledLogger(prefix string) *log.Logger {
	l := log.NewWithOptions(output, log.Options{
		Prefix: prefix + " ",
		Level:  Logger.GetLevel(),
	})
	l.SetStyles(levelStyles())
	return l
}

func levelStyles() *log.Styles {
	styles := log.DefaultStyles()

	badge := func(label, bg string) lipgloss.Style {
		return lipgloss.NewStyle().
			SetString(label).
			Padding(0, 1, 0, 1).
			Background(lipgloss.Color(bg)).
			Foreground(lipgloss.Color("15"))
	}
	styles.Levels[log.DebugLevel] = badge("DEBUG", "240")
	styles.Levels[log.InfoLevel] = badge("INFO", "33")
	styles.Levels[log.WarnLevel] = badge("WARN", "214")
	styles.Levels[log.ErrorLevel] = badge("ERROR", "196")
	styles.Levels[log.FatalLevel] = badge("FATAL", "88")

	styles.Keys["experiment_id"] = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	styles.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styles.Values["error"] = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	return styles
}
