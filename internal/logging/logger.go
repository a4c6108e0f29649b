package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. The "local" environment gets a human
// readable console writer; everything else logs JSON. Logs go to stderr so
// translated text on stdout stays clean.
func New(environment, level string) (zerolog.Logger, error) {
	return newWithWriter(os.Stderr, environment, level)
}

func newWithWriter(out io.Writer, environment, level string) (zerolog.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = zerolog.InfoLevel.String()
	}
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level %q: %w", level, err)
	}

	writer := out
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(writer).
		Level(parsedLevel).
		With().
		Timestamp().
		Str("service", "adaptran").
		Logger()

	return logger, nil
}
