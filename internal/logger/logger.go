package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger for the named service.
// level is one of DEBUG, INFO, WARN, ERROR; anything else falls back to INFO.
// LOG_LEVEL in the environment wins over the argument.
func Init(service, level string) {
	InitWithWriter(service, level, os.Stdout)
}

// InitWithWriter is Init with an explicit output, used by tests.
func InitWithWriter(service, level string, w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = v
	}
	zerolog.SetGlobalLevel(parseLevel(level))

	log.Logger = zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Info() *zerolog.Event {
	return log.Info()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
