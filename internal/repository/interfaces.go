package repository

import (
	"context"

	"detectserver/internal/model"
)

// ArtifactRepository defines the interface for artifact metadata operations.
type ArtifactRepository interface {
	// Create operations
	Insert(ctx context.Context, a *model.Artifact) (int64, error)

	// Read operations
	GetByFilename(ctx context.Context, filename string) (*model.Artifact, error)
	Exists(ctx context.Context, filename string) (bool, error)
	List(ctx context.Context, filter *model.ArtifactFilter) ([]model.Artifact, error)
	Count(ctx context.Context, filter *model.ArtifactFilter) (int, error)
	ObjectCounts(ctx context.Context) (map[string]int, error)
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	InsertBatch(ctx context.Context, artifactID int64, detections []model.Detection) error
}
