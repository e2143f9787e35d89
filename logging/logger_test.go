package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew verifies level filtering and key/value output.
func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("failed to mark items as read", "items", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "failed to mark items as read")
	assert.Contains(t, out, "items=2")
}

// TestNew_InvalidLevel verifies that unknown levels are rejected.
func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "chatty")
	assert.ErrorContains(t, err, "failed to parse log level")
}

// TestNewFile_DefaultPath verifies that logs go to a dated file under the
// logs directory.
func TestNewFile_DefaultPath(t *testing.T) {
	dir := t.TempDir()

	logger, file, err := NewFile(dir, "", "debug")
	require.NoError(t, err)
	logger.Debug("started")
	require.NoError(t, file.Close())

	files, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(filepath.Join(dir, "logs", files[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "started")
}

// TestOpenFile_ExplicitPath verifies that an explicit path is used as is.
func TestOpenFile_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reader.log")

	file, err := OpenFile("/unused", path)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.FileExists(t, path)
}
