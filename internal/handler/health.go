package handler

import (
	"net/http"

	"detectserver/internal/config"
	"detectserver/internal/dto"
)

// HealthHandler answers GET / with the service status. It does not touch the
// model or the results directory.
func HealthHandler(cfg *config.Config) http.HandlerFunc {
	health := dto.Health{
		Status: "active",
		Model:  cfg.ModelName,
		Endpoints: map[string]string{
			"detect":  "POST /detect/",
			"result":  "GET /static/results/{filename}",
			"results": "GET /api/results",
			"details": "GET /api/results/{filename}",
			"events":  "GET /api/events",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, health, http.StatusOK)
	}
}
