package route

import (
	"net/http"
	"strings"

	"detectserver/internal/config"
	"detectserver/internal/dto"
	"detectserver/internal/handler"
	"detectserver/internal/logger"
	"detectserver/internal/middleware"
	"detectserver/internal/repository"
	"detectserver/internal/service/websocket"
)

// noListing hides directory indexes under the static tree.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetupRoutes registers the detection endpoint, the status endpoint, static
// artifact serving and the results API, and wraps the mux with middleware.
// artifactRepo and events may be nil when the ledger or live feed is off.
func SetupRoutes(processor handler.Processor, cfg *config.Config, logger *logger.Logger,
	artifactRepo repository.ArtifactRepository, events *websocket.HubService) http.Handler {
	mux := http.NewServeMux()

	// Static files; results are mounted separately so RESULTS_DIR may live outside STATIC_DIR.
	mux.Handle("GET /static/", http.StripPrefix("/static/", noListing(http.FileServer(http.Dir(cfg.StaticDirectory)))))
	mux.Handle("GET "+dto.ResultsURLPrefix, http.StripPrefix(dto.ResultsURLPrefix, noListing(http.FileServer(http.Dir(cfg.ResultsDirectory)))))

	// Detection
	detect := handler.DetectHandler(processor, cfg, logger)
	mux.HandleFunc("POST /detect/", detect)
	mux.HandleFunc("POST /detect", detect)

	// Results API
	mux.HandleFunc("GET /api/results", handler.GetResultsHandler(artifactRepo, logger))
	mux.HandleFunc("GET /api/results/{filename}", handler.GetResultHandler(artifactRepo, logger))
	if events != nil {
		mux.HandleFunc("GET /api/events", handler.EventsWebsocketHandler(events, logger))
	}

	mux.HandleFunc("GET /{$}", handler.HealthHandler(cfg))

	return middleware.Chain(mux,
		middleware.Recover(logger),
		middleware.Logging(logger),
		middleware.CORS,
	)
}
