package dto

import (
	"net/url"
	"path"
	"time"

	"detectserver/internal/model"
)

// ResultsURLPrefix is where artifacts are served from.
const ResultsURLPrefix = "/static/results/"

// ArtifactSummary is the structured description of a stored artifact. It is
// returned by the results API and pushed to live viewers.
type ArtifactSummary struct {
	Filename         string            `json:"filename"`
	OriginalFilename string            `json:"original_filename"`
	DetectedObjects  int               `json:"detected_objects"`
	ResultURL        string            `json:"result_url"`
	ContentType      string            `json:"content_type"`
	CapturedAt       time.Time         `json:"captured_at"`
	Detections       []model.Detection `json:"detections"`
}

// ResultURL returns the public path of an artifact file.
func ResultURL(filename string) string {
	return ResultsURLPrefix + url.PathEscape(path.Base(filename))
}

// NewArtifactSummary builds the summary of a stored artifact.
func NewArtifactSummary(a *model.Artifact) ArtifactSummary {
	detections := a.Detections
	if detections == nil {
		detections = []model.Detection{}
	}
	return ArtifactSummary{
		Filename:         a.Filename,
		OriginalFilename: a.OriginalFilename,
		DetectedObjects:  len(a.Detections),
		ResultURL:        ResultURL(a.Filename),
		ContentType:      a.ContentType,
		CapturedAt:       a.CapturedAt,
		Detections:       detections,
	}
}
