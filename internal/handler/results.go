package handler

import (
	"fmt"
	"net/http"
	"time"

	"detectserver/internal/dto"
	"detectserver/internal/logger"
	"detectserver/internal/model"
	"detectserver/internal/repository"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
	maxPage         = 1 << 20
)

// parseTimeParam accepts RFC 3339, a plain date, or the artifact name stamp.
// An empty value means no bound.
func parseTimeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.DateOnly, "20060102150405"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", value)
}

// GetResultsHandler returns a page of stored artifacts from the ledger.
func GetResultsHandler(artifactRepo repository.ArtifactRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if artifactRepo == nil {
			http.Error(w, "Artifact ledger is disabled", http.StatusServiceUnavailable)
			return
		}

		q := r.URL.Query()
		limit := min(atoiDefault(q.Get("limit"), defaultPageSize), maxPageSize)
		page := min(atoiDefault(q.Get("page"), 1), maxPage)

		since, err := parseTimeParam(q.Get("since"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		until, err := parseTimeParam(q.Get("until"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		filter := &model.ArtifactFilter{
			Object: q.Get("object"),
			Since:  since,
			Until:  until,
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		artifacts, err := artifactRepo.List(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying artifacts from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := artifactRepo.Count(r.Context(), filter)
		if err != nil {
			logger.Error("Error counting artifacts: %v", err)
			totalCount = len(artifacts)
		}

		objectCounts, err := artifactRepo.ObjectCounts(r.Context())
		if err != nil {
			logger.Error("Error counting objects: %v", err)
			objectCounts = map[string]int{}
		}

		summaries := make([]dto.ArtifactSummary, 0, len(artifacts))
		for i := range artifacts {
			summaries = append(summaries, dto.NewArtifactSummary(&artifacts[i]))
		}

		respondJSON(w, dto.ArtifactList{
			Artifacts:    summaries,
			ObjectCounts: objectCounts,
			Length:       totalCount,
			TotalPages:   (totalCount + limit - 1) / limit,
			CurrentPage:  page,
			Limit:        limit,
		}, http.StatusOK)
	}
}

// GetResultHandler returns the structured summary of one artifact.
func GetResultHandler(artifactRepo repository.ArtifactRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if artifactRepo == nil {
			http.Error(w, "Artifact ledger is disabled", http.StatusServiceUnavailable)
			return
		}

		filename := r.PathValue("filename")
		artifact, err := artifactRepo.GetByFilename(r.Context(), filename)
		if err != nil {
			logger.Error("Error loading artifact %s: %v", filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if artifact == nil {
			http.NotFound(w, r)
			return
		}

		respondJSON(w, dto.NewArtifactSummary(artifact), http.StatusOK)
	}
}
