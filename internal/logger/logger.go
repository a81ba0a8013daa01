package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the application logger. Console output with timestamps; debug
// level outside production. Credentials and password hashes must never be
// passed to it as fields.
func New(env string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    env == "prod",
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("env", env).
		Logger()

	if env == "prod" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	return logger
}
