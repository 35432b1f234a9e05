// Package logging builds the zerolog loggers used by the binaries.
package logging

import (
	"io"
	"os"
	"time"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the given level. Console output is
// human readable; otherwise one JSON object per line.
func New(w io.Writer, level string, console bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Stderr is New on os.Stderr with console output.
func Stderr(level string) (zerolog.Logger, error) {
	return New(os.Stderr, level, true)
}

// SilenceGnark discards gnark's compile and setup chatter unless the logger
// runs at debug level or below.
func SilenceGnark(logger zerolog.Logger) {
	if logger.GetLevel() <= zerolog.DebugLevel {
		gnarklogger.Set(logger.With().Str("module", "gnark").Logger())
		return
	}
	gnarklogger.Set(zerolog.New(io.Discard).Level(zerolog.Disabled))
}
