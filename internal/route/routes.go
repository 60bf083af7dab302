package route

import (
	"net/http"
	"os"
	"path/filepath"

	"aerodetect/internal/config"
	"aerodetect/internal/handler"
	"aerodetect/internal/logger"
	"aerodetect/internal/middleware"
	"aerodetect/internal/service"
	"aerodetect/internal/service/storage"
	"aerodetect/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the prediction API, history and progress endpoints,
// static and output file serving, and the operational endpoints.
func SetupRoutes(manager *service.Manager, hub *websocket.HubService, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))
	mux.Handle(storage.OutputRoute, http.StripPrefix(storage.OutputRoute, http.FileServer(http.Dir(cfg.OutputDirectory))))

	// Prediction endpoints
	mux.HandleFunc("/predict/images/", handler.PredictImagesHandler(manager, cfg, logger))
	mux.HandleFunc("/predict/video/", handler.PredictVideoHandler(manager, cfg, logger))

	// API endpoints
	mux.HandleFunc("/api/progress", handler.ProgressWebsocketHandler(hub, logger))
	mux.HandleFunc("/api/videos", handler.GetVideosHandler(manager, logger))
	mux.HandleFunc("/api/videos/view", handler.ViewVideoHandler(manager, logger))
	mux.HandleFunc("/api/videos/delete", handler.DeleteVideoHandler(manager, logger))

	// Operational endpoints
	mux.HandleFunc("/health", handler.HealthHandler(manager))
	mux.Handle("/metrics", manager.Metrics().Handler())

	// Log endpoints
	mux.HandleFunc("/logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger))

	// Automatic HTML handler mapping for example: /history -> /static/history.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	return middleware.LoggingMiddleware(logger)(mux)
}
