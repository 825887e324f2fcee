package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/model"
	"detectserver/internal/repository"
	"detectserver/internal/service/codec"
)

// TimestampLayout is the one-second capture stamp prefixed to artifact names.
const TimestampLayout = "20060102150405"

// ResultStore writes annotated images to the results directory and records
// them in the artifact ledger when one is configured.
type ResultStore struct {
	dir           string
	naming        string
	now           func() time.Time
	logger        *logger.Logger
	artifactRepo  repository.ArtifactRepository
	detectionRepo repository.DetectionRepository
}

// SaveRequest is one encoded artifact ready to be written.
type SaveRequest struct {
	OriginalFilename string
	Format           codec.Format
	Data             []byte
	Detections       []model.Detection
}

// NewResultStore creates the results directory if needed. The repositories
// may be nil, in which case nothing is recorded.
func NewResultStore(cfg *config.Config, logger *logger.Logger, artifactRepo repository.ArtifactRepository,
	detectionRepo repository.DetectionRepository) (*ResultStore, error) {
	if err := EnsureDir(cfg.ResultsDirectory); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	naming := cfg.ArtifactNames
	if naming != config.NamingTimestamp {
		naming = config.NamingUnique
	}

	return &ResultStore{
		dir:           cfg.ResultsDirectory,
		naming:        naming,
		now:           time.Now,
		logger:        logger,
		artifactRepo:  artifactRepo,
		detectionRepo: detectionRepo,
	}, nil
}

// SetClock replaces the time source.
func (s *ResultStore) SetClock(now func() time.Time) {
	s.now = now
}

// Dir is the results directory.
func (s *ResultStore) Dir() string {
	return s.dir
}

// Save writes the artifact and returns its description.
func (s *ResultStore) Save(ctx context.Context, req SaveRequest) (*model.Artifact, error) {
	capturedAt := s.now()
	name := ArtifactName(s.naming, capturedAt, req.OriginalFilename, req.Format)
	path := filepath.Join(s.dir, name)

	if err := writeFileAtomic(s.dir, path, req.Data); err != nil {
		return nil, fmt.Errorf("failed to write artifact %s: %w", name, err)
	}

	artifact := &model.Artifact{
		Filename:         name,
		OriginalFilename: req.OriginalFilename,
		FilePath:         path,
		ContentType:      req.Format.ContentType(),
		FileSize:         int64(len(req.Data)),
		CapturedAt:       capturedAt,
		Detections:       req.Detections,
	}

	// The file is already written; a cancelled request must not lose its row.
	s.record(context.WithoutCancel(ctx), artifact)
	return artifact, nil
}

// record stores the artifact in the ledger. Failures are logged; the file on
// disk is the artifact.
func (s *ResultStore) record(ctx context.Context, artifact *model.Artifact) {
	if s.artifactRepo == nil {
		return
	}

	id, err := s.artifactRepo.Insert(ctx, artifact)
	if err != nil {
		s.logger.Error("Error saving artifact %s to database: %v", artifact.Filename, err)
		return
	}
	artifact.ID = id
	for i := range artifact.Detections {
		artifact.Detections[i].ArtifactID = id
	}

	if s.detectionRepo != nil && len(artifact.Detections) > 0 {
		if err := s.detectionRepo.InsertBatch(ctx, id, artifact.Detections); err != nil {
			s.logger.Error("Error saving detections of %s to database: %v", artifact.Filename, err)
		}
	}
}

// ArtifactName builds the stored filename. The unique policy ignores the
// caller's filename entirely; the timestamp policy keeps a sanitized copy of it.
func ArtifactName(naming string, capturedAt time.Time, originalFilename string, format codec.Format) string {
	stamp := capturedAt.Format(TimestampLayout)

	if naming == config.NamingTimestamp {
		base := SanitizeFilename(originalFilename)
		if base == "" {
			base = "upload" + format.Extension()
		} else if filepath.Ext(base) == "" {
			base += format.Extension()
		}
		return stamp + "_" + base
	}

	return stamp + "_" + uuid.NewString() + format.Extension()
}

// ParseCapturedAt reads the capture stamp from the front of an artifact name.
func ParseCapturedAt(filename string) (time.Time, bool) {
	stamp, _, ok := strings.Cut(filepath.Base(filename), "_")
	if !ok || len(stamp) != len(TimestampLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SanitizeFilename reduces a caller-supplied name to a safe base name.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)

	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	// Leading dots would produce hidden files or "..".
	return strings.TrimLeft(strings.Trim(b.String(), "_"), ".")
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
