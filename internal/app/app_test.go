package app

import (
	"context"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/service/ai"
)

type noopDetector struct{ closed bool }

func (d *noopDetector) Predict(ctx context.Context, frame image.Image, threshold float32) ([]ai.Detection, error) {
	return nil, nil
}

func (d *noopDetector) Close() error {
	d.closed = true
	return nil
}

func testConfig(t *testing.T) *config.Config {
	root := t.TempDir()
	return &config.Config{
		Port:             0,
		StaticDirectory:  filepath.Join(root, "static"),
		ResultsDirectory: filepath.Join(root, "static", "results"),
		DatabasePath:     filepath.Join(root, "data", "artifacts.db"),
		ModelName:        "yolov8n",
		OutputFormat:     "png",
		ArtifactNames:    config.NamingUnique,
	}
}

func TestNewApp_WiresLedgerAndRoutes(t *testing.T) {
	cfg := testConfig(t)
	det := &noopDetector{}

	a, err := newApp(cfg, logger.NewWriterLogger(io.Discard), det)
	require.NoError(t, err)

	_, err = os.Stat(cfg.ResultsDirectory)
	require.NoError(t, err)
	_, err = os.Stat(cfg.DatabasePath)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, a.Close())
	require.True(t, det.closed)
}

func TestNewApp_LedgerDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabasePath = ""

	a, err := newApp(cfg, logger.NewWriterLogger(io.Discard), &noopDetector{})
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a, err := newApp(testConfig(t), logger.NewWriterLogger(io.Discard), &noopDetector{})
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
