package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsystemAttribute(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Setup(&buf, "json", slog.LevelDebug)
	Warn("Skipping weight", Toolkit, "name", "conv2d/kernel:0")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "toolkit", rec["subsystem"])
	assert.Equal(t, "conv2d/kernel:0", rec["name"])
}

func TestLevelFiltering(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Setup(&buf, "text", slog.LevelWarn)
	Info("hidden", Models)
	Debug("hidden", Models)
	assert.Empty(t, buf.String())

	Error("shown", Models)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "subsystem=models")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestWithNoopLoggerRestores(t *testing.T) {
	prev := slog.Default()
	WithNoopLogger(func() {
		assert.NotSame(t, prev, slog.Default())
	})
	assert.Same(t, prev, slog.Default())
}
