package ai

import (
	"context"
	"image"
	"sort"
)

const (
	// DefaultConfidenceThreshold is the minimum score a detection needs to be kept.
	DefaultConfidenceThreshold = 0.5
	// DefaultNMSThreshold is the IoU above which overlapping boxes of one class are merged.
	DefaultNMSThreshold = 0.45
)

// Model kinds understood by the OpenCV detector.
const (
	KindSSD    = "ssd"
	KindYOLOv8 = "yolov8"
)

// Detection is one object found in a frame. Box is in frame pixel coordinates.
type Detection struct {
	ClassID    int             `json:"class_id"`
	Label      string          `json:"label"`
	Confidence float32         `json:"confidence"`
	Box        image.Rectangle `json:"-"`
}

// Detector runs a pretrained model over a frame.
type Detector interface {
	// Predict returns every detection whose confidence is >= threshold.
	Predict(ctx context.Context, frame image.Image, threshold float32) ([]Detection, error)
	Close() error
}

// Options configure a model-backed detector.
type Options struct {
	ModelPath    string
	ConfigPath   string
	Kind         string
	Labels       []string
	NMSThreshold float32
}

// FilterByConfidence keeps detections scoring at least threshold, highest first.
func FilterByConfidence(detections []Detection, threshold float32) []Detection {
	kept := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence >= threshold {
			kept = append(kept, d)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	return kept
}

// ClampBox limits a box to the frame bounds.
func ClampBox(box image.Rectangle, bounds image.Rectangle) image.Rectangle {
	return box.Canon().Intersect(bounds)
}
