/*
Package logx provides a structured logging wrapper based on zerolog.

It initializes the process-wide logger (console output while developing, JSON otherwise),
hands out component-scoped child loggers to the relay, and offers key/value helpers
for one-off log lines.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger initializes the global zerolog instance.
// Development: Debug level, human-readable ConsoleWriter on stderr.
// Production: Info level, JSON lines on stdout.
// All logs include a Unix timestamp and caller information.
func InitGlobalLogger(isDevelopment bool) {
	initWith(os.Stdout, isDevelopment)
}

func initWith(out io.Writer, isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(out).With().Timestamp().Logger()

	if isDevelopment {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// Logger returns a pointer to the global zerolog.Logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// checkFields drops an odd-length key/value list so zerolog never panics on it.
func checkFields(level string, fields []any) []any {
	if len(fields)%2 != 0 {
		Logger().Warn().
			Int("fields_count", len(fields)).
			Str("log_level", level).
			Msgf("logx %s call received odd number of fields: %v. Fields ignored.", level, fields)
		return nil
	}
	return fields
}

// Debug records a message at Debug level with optional key/value fields.
func Debug(msg string, fields ...any) {
	fields = checkFields("Debug", fields)

	Logger().Debug().
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Info records a message at Info level with optional key/value fields.
func Info(msg string, fields ...any) {
	fields = checkFields("Info", fields)

	Logger().Info().
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Warn records a message at Warn level with optional key/value fields.
func Warn(msg string, fields ...any) {
	fields = checkFields("Warn", fields)

	Logger().Warn().
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Error records err at Error level with optional key/value fields.
func Error(err error, msg string, fields ...any) {
	fields = checkFields("Error", fields)

	Logger().Error().
		Err(err).
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}

// Fatal records err at Fatal level and exits the process.
func Fatal(err error, msg string, fields ...any) {
	fields = checkFields("Fatal", fields)

	Logger().Fatal().
		Err(err).
		Fields(fields).
		CallerSkipFrame(1).
		Msg(msg)
}
