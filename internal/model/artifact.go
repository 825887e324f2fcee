package model

import "time"

// Artifact represents an annotated image written to the results directory.
type Artifact struct {
	ID               int64       `json:"id"`
	Filename         string      `json:"filename"`
	OriginalFilename string      `json:"original_filename"`
	FilePath         string      `json:"filepath"`
	ContentType      string      `json:"content_type"`
	FileSize         int64       `json:"filesize"`
	CapturedAt       time.Time   `json:"captured_at"`
	Detections       []Detection `json:"detections,omitempty"`
}

// ArtifactFilter contains filtering options for querying artifacts.
type ArtifactFilter struct {
	Object string
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}
