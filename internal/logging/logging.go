// Package logging configures the process wide logrus logger.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logger. Unknown levels fall back to info.
func Setup(level, format string) *logrus.Logger {
	logger := logrus.StandardLogger()
	Configure(logger, level, format)
	return logger
}

// Configure applies level and format to logger
func Configure(logger *logrus.Logger, level, format string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// New returns an independent logger writing to w
func New(w io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	Configure(logger, level, format)
	return logger
}
