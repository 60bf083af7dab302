package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"aerodetect/internal/logger"
)

func levelFromPath(r *http.Request) (logger.Level, bool) {
	level := logger.Level(r.PathValue("level"))
	for _, known := range logger.Levels {
		if level == known {
			return level, true
		}
	}
	return "", false
}

// ShowLogsHandler serves the log file of the {level} path segment as text/plain.
func ShowLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level, ok := levelFromPath(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveLogFile(w, r, logger.Dir(), level.FileName())
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates the log file of the {level} path segment.
func ClearLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level, ok := levelFromPath(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := logger.CleanLogs(level); err != nil {
			respondError(w, "Unable to clear log", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
