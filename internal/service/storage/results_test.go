package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/model"
	"detectserver/internal/repository/sqlite"
	"detectserver/internal/service/codec"
)

var captured = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newStore(t *testing.T, naming string) *ResultStore {
	t.Helper()
	cfg := &config.Config{ResultsDirectory: filepath.Join(t.TempDir(), "static", "results"), ArtifactNames: naming}
	store, err := NewResultStore(cfg, logger.NewWriterLogger(io.Discard), nil, nil)
	require.NoError(t, err)
	store.SetClock(func() time.Time { return captured })
	return store
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cat.jpg", "cat.jpg"},
		{"photo_001.png", "photo_001.png"},
		{"../secret.jpg", "secret.jpg"},
		{"/etc/passwd", "passwd"},
		{`C:\Users\me\dog.png`, "dog.png"},
		{"my cat.jpg", "my_cat.jpg"},
		{"file\x00name.jpg", "filename.jpg"},
		{".hidden.png", "hidden.png"},
		{"..", ""},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestArtifactName_Timestamp(t *testing.T) {
	require.Equal(t, "20240101000000_cat.jpg", ArtifactName(config.NamingTimestamp, captured, "cat.jpg", codec.JPEG))
	require.Equal(t, "20240101000000_secret.jpg", ArtifactName(config.NamingTimestamp, captured, "../../secret.jpg", codec.JPEG))
	require.Equal(t, "20240101000000_upload.png", ArtifactName(config.NamingTimestamp, captured, "", codec.PNG))
	require.Equal(t, "20240101000000_blob.webp", ArtifactName(config.NamingTimestamp, captured, "blob", codec.WEBP))
}

func TestArtifactName_Unique(t *testing.T) {
	pattern := regexp.MustCompile(`^20240101000000_[0-9a-f-]{36}\.png$`)

	a := ArtifactName(config.NamingUnique, captured, "../cat.jpg", codec.PNG)
	b := ArtifactName(config.NamingUnique, captured, "../cat.jpg", codec.PNG)

	require.Regexp(t, pattern, a)
	require.Regexp(t, pattern, b)
	require.NotEqual(t, a, b)
	require.NotContains(t, a, "cat")
}

func TestResultStore_SaveTimestampNaming(t *testing.T) {
	store := newStore(t, config.NamingTimestamp)

	artifact, err := store.Save(context.Background(), SaveRequest{
		OriginalFilename: "cat.jpg",
		Format:           codec.JPEG,
		Data:             []byte("jpeg bytes"),
	})
	require.NoError(t, err)

	require.Equal(t, "20240101000000_cat.jpg", artifact.Filename)
	require.Equal(t, filepath.Join(store.Dir(), "20240101000000_cat.jpg"), artifact.FilePath)
	require.Equal(t, "image/jpeg", artifact.ContentType)
	require.Equal(t, int64(10), artifact.FileSize)
	require.Equal(t, "cat.jpg", artifact.OriginalFilename)

	data, err := os.ReadFile(artifact.FilePath)
	require.NoError(t, err)
	require.Equal(t, "jpeg bytes", string(data))
	require.Equal(t, []string{"20240101000000_cat.jpg"}, listFiles(t, store.Dir()))
}

func TestResultStore_SameSecondOverwritesWithTimestampNaming(t *testing.T) {
	store := newStore(t, config.NamingTimestamp)
	ctx := context.Background()

	_, err := store.Save(ctx, SaveRequest{OriginalFilename: "cat.jpg", Format: codec.JPEG, Data: []byte("first")})
	require.NoError(t, err)
	second, err := store.Save(ctx, SaveRequest{OriginalFilename: "cat.jpg", Format: codec.JPEG, Data: []byte("second")})
	require.NoError(t, err)

	require.Len(t, listFiles(t, store.Dir()), 1)
	data, err := os.ReadFile(second.FilePath)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	store.SetClock(func() time.Time { return captured.Add(time.Second) })
	_, err = store.Save(ctx, SaveRequest{OriginalFilename: "cat.jpg", Format: codec.JPEG, Data: []byte("third")})
	require.NoError(t, err)
	require.Len(t, listFiles(t, store.Dir()), 2)
}

func newLedgerStore(t *testing.T, naming string) (*ResultStore, *sqlite.ArtifactRepository) {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "artifacts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	artifactRepo := sqlite.NewArtifactRepository(db)
	cfg := &config.Config{ResultsDirectory: t.TempDir(), ArtifactNames: naming}
	store, err := NewResultStore(cfg, logger.NewWriterLogger(io.Discard), artifactRepo, sqlite.NewDetectionRepository(db))
	require.NoError(t, err)
	store.SetClock(func() time.Time { return captured })
	return store, artifactRepo
}

func TestResultStore_SameSecondOverwriteUpdatesLedger(t *testing.T) {
	store, artifactRepo := newLedgerStore(t, config.NamingTimestamp)
	ctx := context.Background()

	_, err := store.Save(ctx, SaveRequest{
		OriginalFilename: "cat.jpg",
		Format:           codec.JPEG,
		Data:             []byte("first"),
		Detections:       []model.Detection{{ObjectName: "cat", Confidence: 0.9}},
	})
	require.NoError(t, err)
	second, err := store.Save(ctx, SaveRequest{
		OriginalFilename: "cat.jpg",
		Format:           codec.JPEG,
		Data:             []byte("second upload"),
		Detections: []model.Detection{
			{ObjectName: "dog", Confidence: 0.8},
			{ObjectName: "dog", Confidence: 0.6},
		},
	})
	require.NoError(t, err)
	require.Positive(t, second.ID)

	stored, err := artifactRepo.GetByFilename(ctx, second.Filename)
	require.NoError(t, err)
	require.NotNil(t, stored)

	info, err := os.Stat(second.FilePath)
	require.NoError(t, err)
	require.Equal(t, info.Size(), stored.FileSize)
	require.Len(t, stored.Detections, 2)
	for _, d := range stored.Detections {
		require.Equal(t, "dog", d.ObjectName)
	}

	total, err := artifactRepo.Count(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestResultStore_CancelledRequestStillRecorded(t *testing.T) {
	store, artifactRepo := newLedgerStore(t, config.NamingUnique)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	artifact, err := store.Save(ctx, SaveRequest{
		OriginalFilename: "street.jpg",
		Format:           codec.JPEG,
		Data:             []byte("jpeg"),
		Detections:       []model.Detection{{ObjectName: "car", Confidence: 0.7}},
	})
	require.NoError(t, err)
	require.FileExists(t, artifact.FilePath)

	stored, err := artifactRepo.GetByFilename(context.Background(), artifact.Filename)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Detections, 1)
}

func TestResultStore_UniqueNamingNeverCollides(t *testing.T) {
	store := newStore(t, config.NamingUnique)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Save(ctx, SaveRequest{OriginalFilename: "cat.jpg", Format: codec.PNG, Data: []byte("x")})
		require.NoError(t, err)
	}
	require.Len(t, listFiles(t, store.Dir()), 5)
}

func TestResultStore_RecordsInLedger(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "artifacts.db"))
	require.NoError(t, err)
	defer db.Close()

	artifactRepo := sqlite.NewArtifactRepository(db)
	cfg := &config.Config{ResultsDirectory: t.TempDir(), ArtifactNames: config.NamingUnique}
	store, err := NewResultStore(cfg, logger.NewWriterLogger(io.Discard), artifactRepo, sqlite.NewDetectionRepository(db))
	require.NoError(t, err)

	artifact, err := store.Save(context.Background(), SaveRequest{
		OriginalFilename: "street.png",
		Format:           codec.PNG,
		Data:             []byte("png"),
		Detections: []model.Detection{
			{ObjectName: "car", Width: 10, Height: 10, Confidence: 0.8},
			{ObjectName: "person", Width: 3, Height: 9, Confidence: 0.6},
		},
	})
	require.NoError(t, err)
	require.Positive(t, artifact.ID)

	stored, err := artifactRepo.GetByFilename(context.Background(), artifact.Filename)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "street.png", stored.OriginalFilename)
	require.Len(t, stored.Detections, 2)
}

type failingRepo struct{}

func (failingRepo) Insert(context.Context, *model.Artifact) (int64, error) {
	return 0, errors.New("disk full")
}
func (failingRepo) GetByFilename(context.Context, string) (*model.Artifact, error) { return nil, nil }
func (failingRepo) Exists(context.Context, string) (bool, error)                   { return false, nil }
func (failingRepo) List(context.Context, *model.ArtifactFilter) ([]model.Artifact, error) {
	return nil, nil
}
func (failingRepo) Count(context.Context, *model.ArtifactFilter) (int, error) { return 0, nil }
func (failingRepo) ObjectCounts(context.Context) (map[string]int, error)      { return nil, nil }

func TestResultStore_LedgerFailureKeepsArtifact(t *testing.T) {
	cfg := &config.Config{ResultsDirectory: t.TempDir()}
	store, err := NewResultStore(cfg, logger.NewWriterLogger(io.Discard), failingRepo{}, nil)
	require.NoError(t, err)

	artifact, err := store.Save(context.Background(), SaveRequest{OriginalFilename: "a.png", Format: codec.PNG, Data: []byte("x")})
	require.NoError(t, err)
	require.Zero(t, artifact.ID)
	require.FileExists(t, artifact.FilePath)
}

func TestResultStore_WriteFailure(t *testing.T) {
	store := newStore(t, config.NamingUnique)
	require.NoError(t, os.RemoveAll(store.Dir()))

	_, err := store.Save(context.Background(), SaveRequest{Format: codec.PNG, Data: []byte("x")})
	require.ErrorContains(t, err, "failed to write artifact")
}

func TestParseCapturedAt(t *testing.T) {
	got, ok := ParseCapturedAt("20240101000000_cat.jpg")
	require.True(t, ok)
	require.Equal(t, "20240101000000", got.Format(TimestampLayout))

	name := ArtifactName(config.NamingUnique, captured, "x.png", codec.PNG)
	got, ok = ParseCapturedAt(name)
	require.True(t, ok)
	require.Equal(t, captured.Format(TimestampLayout), got.Format(TimestampLayout))

	for _, name := range []string{"cat.jpg", "2024_cat.jpg", "2024010100000x_cat.jpg", ""} {
		_, ok := ParseCapturedAt(name)
		require.False(t, ok, name)
	}
}
