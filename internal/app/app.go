package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/repository"
	"detectserver/internal/repository/sqlite"
	"detectserver/internal/route"
	"detectserver/internal/service/ai"
	"detectserver/internal/service/codec"
	"detectserver/internal/service/pipeline"
	"detectserver/internal/service/storage"
	"detectserver/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	detector   ai.Detector
	hubService *websocket.HubService
	pipeline   *pipeline.Pipeline
	server     *http.Server
}

// NewApp loads the model pool and opens the logs and the artifact ledger.
func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	opts := ai.Options{
		ModelPath:    cfg.ModelPath,
		ConfigPath:   cfg.ModelConfigPath,
		Kind:         cfg.ModelKind,
		NMSThreshold: float32(cfg.NMSThreshold),
	}
	if cfg.LabelsPath != "" {
		labels, err := ai.LoadLabels(cfg.LabelsPath)
		if err != nil {
			log.Close()
			return nil, err
		}
		opts.Labels = labels
	}

	// One network per worker; a loaded network is not safe for concurrent use.
	pool, err := ai.NewPoolFromFactory(cfg.InferenceWorkers, func() (ai.Detector, error) {
		return ai.NewGoCVDetector(opts)
	})
	if err != nil {
		log.Error("Failed to load model %s: %v", cfg.ModelPath, err)
		log.Close()
		return nil, err
	}
	log.Info("Loaded %s (%s) with %d inference workers", cfg.ModelName, cfg.ModelPath, pool.Size())

	a, err := newApp(cfg, log, pool)
	if err != nil {
		pool.Close()
		log.Close()
		return nil, err
	}
	return a, nil
}

func newApp(cfg *config.Config, log *logger.Logger, detector ai.Detector) (*App, error) {
	var (
		db            *sqlite.DB
		artifactRepo  repository.ArtifactRepository
		detectionRepo repository.DetectionRepository
	)
	if cfg.DatabasePath != "" {
		var err error
		db, err = sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open artifact ledger: %w", err)
		}
		artifactRepo = sqlite.NewArtifactRepository(db)
		detectionRepo = sqlite.NewDetectionRepository(db)
	} else {
		log.Warning("DATABASE_PATH is empty - artifact ledger disabled")
	}

	store, err := storage.NewResultStore(cfg, log, artifactRepo, detectionRepo)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	fallback, err := codec.ParseFormat(cfg.OutputFormat)
	if err != nil {
		log.Warning("OUTPUT_FORMAT %q: %v - using png", cfg.OutputFormat, err)
		fallback = codec.PNG
	}

	hub := websocket.NewHubService(log)
	p := pipeline.New(detector, store, hub, log, pipeline.Options{
		ConfidenceThreshold: float32(cfg.ConfidenceThreshold),
		FallbackFormat:      fallback,
		JPEGQuality:         cfg.JPEGQuality,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      route.SetupRoutes(p, cfg, log, artifactRepo, hub),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		detector:   detector,
		hubService: hub,
		pipeline:   p,
		server:     server,
	}, nil
}

// Handler is the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hubService.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.logger.Info("Detection server listening on %s", a.server.Addr)
		a.logger.Info("Model: %s, results: %s", a.config.ModelName, a.config.ResultsDirectory)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down server")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the detectors, the ledger and the log files.
func (a *App) Close() error {
	var errs []error
	if err := a.detector.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
