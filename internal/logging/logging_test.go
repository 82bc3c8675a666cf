package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Options{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("saved data to remote", zap.String("path", "data/water.json"))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "saved data to remote", entry["msg"])
	assert.Equal(t, "data/water.json", entry["path"])
}

func TestVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(Options{Level: "warn", Verbose: true}, &buf)
	require.NoError(t, err)

	logger.Debug("checking for updates")
	assert.Contains(t, buf.String(), "checking for updates")
}

func TestInvalidOptions(t *testing.T) {
	_, err := NewWithWriter(Options{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = NewWithWriter(Options{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paludario.log")
	logger, err := New(Options{Format: "json", File: path})
	require.NoError(t, err)

	logger.Warn("remote save failed, data saved locally")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "remote save failed")
}
