//go:build !gocv
// +build !gocv

package ai

import (
	"context"
	"errors"
	"image"
)

// ErrNoOpenCV is returned when the binary was built without the gocv tag.
var ErrNoOpenCV = errors.New("gocv build tag is not enabled: rebuild with -tags gocv to load a model")

// GoCVDetector is a placeholder when OpenCV is not compiled in.
type GoCVDetector struct{}

// NewGoCVDetector always fails without the gocv build tag.
func NewGoCVDetector(opts Options) (*GoCVDetector, error) {
	_ = opts
	return nil, ErrNoOpenCV
}

// Predict returns ErrNoOpenCV.
func (d *GoCVDetector) Predict(ctx context.Context, frame image.Image, threshold float32) ([]Detection, error) {
	_, _, _ = ctx, frame, threshold
	return nil, ErrNoOpenCV
}

// Close does nothing.
func (d *GoCVDetector) Close() error { return nil }
