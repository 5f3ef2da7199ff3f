package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Level represents a log level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Every log entry carries the kernel
// thread id of the goroutine's current OS thread, a redundant attribute
// specific to Linux that the storage core's original implementation
// carried for correlating log lines with strace/perf output.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	base := zerolog.New(output)
	if cfg.JSONOutput {
		Logger = base.With().Timestamp().Int("tid", kernelThreadID()).Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Int("tid", kernelThreadID()).Logger()
	}
}

// WithComponent creates a child logger tagged with a component name, e.g.
// "blockstore" or "sysdb".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithDatabase creates a child logger tagged with a database name.
func WithDatabase(database string) zerolog.Logger {
	return Logger.With().Str("database", database).Logger()
}

// WithColumnBlock creates a child logger tagged with the full identity of a
// column data block: database, table, column and block id.
func WithColumnBlock(database, table, column string, blockID uint64) zerolog.Logger {
	return Logger.With().
		Str("database", database).
		Str("table", table).
		Str("column", column).
		Uint64("block_id", blockID).
		Logger()
}

func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
