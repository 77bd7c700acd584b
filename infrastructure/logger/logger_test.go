package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l.Level())

	require.NoError(t, l.SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, l.Level())
	assert.Error(t, l.SetLevel("nope"))
	assert.Equal(t, zapcore.DebugLevel, l.Level())
}

func TestFileOutputHonoursLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candles.log")
	l, err := New(Config{Level: "warn", Outputs: []string{"file"}, OutputFile: path, Format: "json"})
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept")
	require.NoError(t, l.SetLevel("info"))
	l.Info("kept-after-reload")
	_ = l.Close()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.False(t, strings.Contains(out, "dropped"))
	assert.True(t, strings.Contains(out, "kept"))
	assert.True(t, strings.Contains(out, "kept-after-reload"))
}

func TestEventHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithCore(core)

	l.LogInstrument("added", "DE000BASF111", map[string]interface{}{"description": "BASF"})
	l.LogStream("connected", "quotes", nil)
	l.LogError(errors.New("boom"), map[string]interface{}{"action": "dial"})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "instrument_event", entries[0].Message)
	assert.Equal(t, "DE000BASF111", entries[0].ContextMap()["isin"])
	assert.Equal(t, "quotes", entries[1].ContextMap()["stream"])
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestWithFieldsSharesLevel(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)
	child := l.WithFields(map[string]interface{}{"component": "api"})
	require.NoError(t, l.SetLevel("error"))
	assert.Equal(t, zapcore.ErrorLevel, child.Level())
}
