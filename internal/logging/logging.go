/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process.
func Setup(environment, level string) zerolog.Logger {
	return SetupWithWriter(environment, level, os.Stdout, nil)
}

// SetupWithWriter configures zerolog with an additional writer (e.g., for log buffer).
// Development logs are human-readable on out; other environments log JSON.
// The additional writer always receives JSON.
func SetupWithWriter(environment, level string, out io.Writer, additionalWriter io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var writer io.Writer = out
	if environment == "development" {
		writer = zerolog.ConsoleWriter{Out: out}
	}
	if additionalWriter != nil {
		writer = zerolog.MultiLevelWriter(writer, additionalWriter)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(ParseLevel(environment, level))
	log.Logger = logger
	return logger
}

// ParseLevel resolves an explicit level name, falling back to debug in
// development and info elsewhere.
func ParseLevel(environment, level string) zerolog.Level {
	if level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && parsed != zerolog.NoLevel {
			return parsed
		}
	}
	if environment == "development" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
