// Package logging configures the shared logrus logger.
//
// All output goes to stderr. When the tracer runs as an MCP server stdout
// carries the JSON-RPC stream and must never receive log lines.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvLevel names the environment variable that selects the log level.
const EnvLevel = "BUBBLE_TRACER_LOG_LEVEL"

// New returns a logger writing text lines to w at the given level.
// Unknown level names fall back to info.
func New(w io.Writer, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// FromEnv returns a stderr logger using the level from BUBBLE_TRACER_LOG_LEVEL.
func FromEnv() *logrus.Logger {
	return New(os.Stderr, os.Getenv(EnvLevel))
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
