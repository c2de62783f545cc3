package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_RejectsInvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud", Format: "console"})
	assert.Error(t, err)
}

func TestNewWithLevel_RuntimeAdjustable(t *testing.T) {
	opts := DefaultOptions()
	opts.Format = "json"
	opts.Path = filepath.Join(t.TempDir(), "lexibot.log")

	log, level, err := NewWithLevel(opts)
	require.NoError(t, err)
	defer log.Sync()

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	level.SetLevel(zapcore.DebugLevel)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
