package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"detectserver/internal/config"
	"detectserver/internal/dto"
	"detectserver/internal/logger"
	"detectserver/internal/model"
	"detectserver/internal/service/pipeline"
)

// uploadFields are the multipart field names accepted for the image.
var uploadFields = []string{"image", "file"}

// Processor runs the artifact pipeline.
type Processor interface {
	Process(ctx context.Context, upload dto.Upload) (*model.Artifact, error)
}

// DetectHandler handles POST /detect/: it runs the upload through the
// pipeline and answers with the annotated image file.
func DetectHandler(processor Processor, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.MaxUploadSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize)
		}

		upload, status, err := readUpload(r)
		if err != nil {
			logger.Warning("Rejected upload: %v", err)
			http.Error(w, err.Error(), status)
			return
		}

		artifact, err := processor.Process(r.Context(), upload)
		if err != nil {
			var invalid *pipeline.InvalidInputError
			if errors.As(err, &invalid) {
				logger.Warning("Rejected %q (%s): %v", upload.Filename, upload.ContentType, err)
				http.Error(w, invalid.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("Detection failed for %q: %v", upload.Filename, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", artifact.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", artifact.Filename))
		w.Header().Set("X-Result-URL", dto.ResultURL(artifact.Filename))
		w.Header().Set("X-Detected-Objects", strconv.Itoa(len(artifact.Detections)))
		http.ServeFile(w, r, artifact.FilePath)
	}
}

// readUpload extracts the first accepted file field. The returned status is
// only meaningful when err is not nil.
func readUpload(r *http.Request) (dto.Upload, int, error) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dto.Upload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return dto.Upload{}, http.StatusBadRequest, fmt.Errorf("failed to parse form: %w", err)
	}

	var (
		file   multipart.File
		header *multipart.FileHeader
		err    error
	)
	for _, field := range uploadFields {
		file, header, err = r.FormFile(field)
		if err == nil {
			break
		}
	}
	if err != nil {
		return dto.Upload{}, http.StatusBadRequest, errors.New("no image file uploaded")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return dto.Upload{}, http.StatusInternalServerError, fmt.Errorf("failed to read file: %w", err)
	}

	return dto.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, 0, nil
}
