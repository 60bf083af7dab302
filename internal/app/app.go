package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"aerodetect/internal/config"
	"aerodetect/internal/logger"
	"aerodetect/internal/metrics"
	"aerodetect/internal/repository"
	"aerodetect/internal/repository/sqlite"
	"aerodetect/internal/route"
	"aerodetect/internal/service"
	"aerodetect/internal/service/ai"
	"aerodetect/internal/service/storage"
	"aerodetect/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config          *config.Config
	logger          *logger.Logger
	db              *sqlite.DB
	detectorService *ai.DetectorService
	hubService      *websocket.HubService
	manager         *service.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	store := storage.NewUploadStore(cfg, log)
	if err := store.EnsureDirs(); err != nil {
		return nil, err
	}

	detector := ai.NewDetectorService(cfg, log)
	hub := websocket.NewHubService(cfg, log)

	// History is optional; without a database the prediction endpoints keep working.
	var (
		db            *sqlite.DB
		jobRepo       repository.VideoJobRepository
		detectionRepo repository.DetectionRepository
	)
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Warning("Video history disabled, failed to open database: %v", err)
	} else {
		jobRepo = sqlite.NewVideoJobRepository(db)
		detectionRepo = sqlite.NewDetectionRepository(db)
	}

	mng := service.NewManager(detector, store, hub, jobRepo, detectionRepo, metrics.New(), cfg, log)

	return &App{
		config:          cfg,
		logger:          log,
		db:              db,
		detectorService: detector,
		hubService:      hub,
		manager:         mng,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	go a.hubService.Run()
	defer a.close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           route.SetupRoutes(a.manager, a.hubService, a.config, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("🚀 Aerial Object Detection Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🤖 AI Model: %s (loaded: %t)\n", a.config.ModelPath, a.detectorService.Loaded())
	fmt.Printf("📁 Uploads: %s\n", a.config.UploadDirectory)
	fmt.Printf("🎞️ Output: %s\n", a.config.OutputDirectory)
	fmt.Printf("🗄️ History: %t\n", a.manager.HistoryEnabled())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (a *App) close() {
	a.hubService.Stop()
	if err := a.detectorService.Close(); err != nil {
		a.logger.Error("Error closing detector: %v", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Error closing database: %v", err)
		}
	}
}
