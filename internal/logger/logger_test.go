package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"detectserver/internal/config"
)

func TestNewLogger_WritesLevelFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	require.NoError(t, err)

	l.Info("stored %s", "artifact")
	l.Error("inference failed: %v", "boom")
	require.NoError(t, l.Close())

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	require.Contains(t, string(info), "stored artifact")

	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	require.Contains(t, string(errs), "inference failed: boom")

	warnings, err := os.ReadFile(filepath.Join(dir, "warning.log"))
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestNewWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	l.Warning("queue %d/%d", 2, 2)

	require.Contains(t, buf.String(), "WARNING")
	require.Contains(t, buf.String(), "queue 2/2")
	require.Contains(t, buf.String(), "logger_test.go")
}
