package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"debug", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"error", zap.ErrorLevel},
		{"bogus", zap.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in).Level(), "level %q", tt.in)
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)
	logger.Debug("hidden")
	logger.Info("ingest", zap.String("word", "fox"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "ingest", entry["msg"])
	assert.Equal(t, "fox", entry["word"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "readaloud.log")
	rt, err := New(Config{Level: "debug", Format: "console", Path: path})
	require.NoError(t, err)
	rt.Logger.Info("hello")
	require.NoError(t, rt.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Equal(t, path, rt.Path)
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
