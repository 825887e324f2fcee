package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STATIC_DIR", "RESULTS_DIR", "CONFIDENCE_THRESHOLD", "ARTIFACT_NAMING", "MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	require.Equal(t, 8000, cfg.Port)
	require.Equal(t, "static", cfg.StaticDirectory)
	require.Equal(t, filepath.Join("static", "results"), cfg.ResultsDirectory)
	require.InDelta(t, 0.5, cfg.ConfidenceThreshold, 1e-9)
	require.Equal(t, NamingUnique, cfg.ArtifactNames)
	require.Equal(t, int64(32<<20), cfg.MaxUploadSize)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STATIC_DIR", "public")
	t.Setenv("RESULTS_DIR", "")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.25")
	t.Setenv("ARTIFACT_NAMING", NamingTimestamp)
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("WRITE_TIMEOUT", "5")

	cfg := Load()

	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, filepath.Join("public", "results"), cfg.ResultsDirectory)
	require.InDelta(t, 0.25, cfg.ConfidenceThreshold, 1e-9)
	require.Equal(t, NamingTimestamp, cfg.ArtifactNames)
	require.Empty(t, cfg.DatabasePath)
	require.Equal(t, 5*time.Second, cfg.WriteTimeout)
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("INFERENCE_WORKERS", "many")
	require.Equal(t, 2, getEnvAsInt("INFERENCE_WORKERS", 2))
}
