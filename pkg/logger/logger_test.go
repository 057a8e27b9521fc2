package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerSyncAvailableThroughInterface(t *testing.T) {
	// Callers hold the interface, so flushing on shutdown has to be part of
	// its contract.
	var log Logger = NewNop()
	require.NoError(t, log.Sync())

	log.Info("message", "key", "value")
	log.Warn("message")
	log.Error("message")
	log.Debug("message")
	require.NoError(t, log.Sync())
}
