package imaq

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Str("pkg", "imaq").Logger()
}

// SetLogger replaces the package logger
func SetLogger(l zerolog.Logger) {
	logger = l
}
