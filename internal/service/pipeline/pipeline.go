// Package pipeline turns an uploaded image into a stored, annotated artifact:
// validate, decode, detect, plot, encode, persist.
package pipeline

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"detectserver/internal/dto"
	"detectserver/internal/logger"
	"detectserver/internal/model"
	"detectserver/internal/service/ai"
	"detectserver/internal/service/codec"
	"detectserver/internal/service/storage"
)

// InvalidInputError reports an upload the caller has to fix.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Reason
}

// Store persists encoded artifacts.
type Store interface {
	Save(ctx context.Context, req storage.SaveRequest) (*model.Artifact, error)
}

// Notifier is told about every stored artifact.
type Notifier interface {
	Publish(summary dto.ArtifactSummary)
}

// Options hold the fixed parameters of every run.
type Options struct {
	ConfidenceThreshold float32
	FallbackFormat      codec.Format
	JPEGQuality         int
}

type Pipeline struct {
	detector ai.Detector
	store    Store
	notifier Notifier
	logger   *logger.Logger
	opts     Options
}

// New creates a pipeline. notifier may be nil.
func New(detector ai.Detector, store Store, notifier Notifier, logger *logger.Logger, opts Options) *Pipeline {
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = ai.DefaultConfidenceThreshold
	}
	if !opts.FallbackFormat.Valid() {
		opts.FallbackFormat = codec.PNG
	}
	return &Pipeline{
		detector: detector,
		store:    store,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
	}
}

// Process runs the whole chain for one upload. Only an *InvalidInputError
// means the caller is at fault.
func (p *Pipeline) Process(ctx context.Context, upload dto.Upload) (*model.Artifact, error) {
	if !IsImageMediaType(upload.ContentType) {
		return nil, &InvalidInputError{Reason: "Invalid image format"}
	}

	frame, err := codec.Decode(upload.Data)
	if err != nil {
		return nil, err
	}

	detections, err := p.detector.Predict(ctx, frame.Image, p.opts.ConfidenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	detections = ai.FilterByConfidence(detections, p.opts.ConfidenceThreshold)

	annotated := ai.Plot(frame.Image, detections)

	format := codec.OutputFormat(frame.Source, p.opts.FallbackFormat)
	data, err := codec.Encode(annotated, format, codec.Options{JPEGQuality: p.opts.JPEGQuality})
	if err != nil {
		return nil, err
	}

	artifact, err := p.store.Save(ctx, storage.SaveRequest{
		OriginalFilename: upload.Filename,
		Format:           format,
		Data:             data,
		Detections:       toModel(detections),
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Stored %s (%s, %d objects) from %q", artifact.Filename, artifact.ContentType, len(detections), upload.Filename)

	if p.notifier != nil {
		p.notifier.Publish(dto.NewArtifactSummary(artifact))
	}
	return artifact, nil
}

// IsImageMediaType reports whether a declared media type is image/*.
func IsImageMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

func toModel(detections []ai.Detection) []model.Detection {
	out := make([]model.Detection, 0, len(detections))
	for _, d := range detections {
		out = append(out, model.Detection{
			ObjectName: d.Label,
			X:          d.Box.Min.X,
			Y:          d.Box.Min.Y,
			Width:      d.Box.Dx(),
			Height:     d.Box.Dy(),
			Confidence: float64(d.Confidence),
		})
	}
	return out
}
