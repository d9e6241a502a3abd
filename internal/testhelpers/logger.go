// Package testhelpers holds fakes and constructors shared by the tests of several packages.
package testhelpers

import (
	"io"
	"log/slog"
	"os"

	"github.com/myrjola/ace/internal/logging"
)

// NewLogger creates a debug logger writing to logSink, usually [io.Discard]. Setting ACE_TEST_LOGS=1 sends the
// logs to stderr instead, which helps when debugging a failing e2e test.
func NewLogger(logSink io.Writer) *slog.Logger {
	if os.Getenv("ACE_TEST_LOGS") == "1" {
		logSink = os.Stderr
	}
	return logging.NewLogger(logSink, slog.LevelDebug, nil)
}
