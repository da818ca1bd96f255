package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// logger is the process-wide structured logger. Level comes from
// LOG_LEVEL (default info), format from LOG_FORMAT (json|console,
// default console).
var logger zerolog.Logger

func init() {
	configureLogger()
}

func configureLogger() {
	level := zerolog.InfoLevel
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(s)); err == nil {
			level = l
		}
	}

	var out io.Writer = os.Stderr
	if os.Getenv("LOG_FORMAT") != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}
