package testutil

import (
	"io"

	"github.com/dtroode/regicide-accounts/internal/logger"
)

// MakeNoopLogger returns a logger that discards everything.
func MakeNoopLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, 0, false)
}
