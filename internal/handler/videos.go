package handler

import (
	"net/http"
	"os"

	"aerodetect/internal/dto"
	"aerodetect/internal/logger"
	"aerodetect/internal/model"
	"aerodetect/internal/service"
)

const defaultVideosPageSize = 24

// GetVideosHandler returns a page of processed video jobs, newest first.
func GetVideosHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !manager.HistoryEnabled() {
			respondError(w, "Video history unavailable", http.StatusServiceUnavailable)
			return
		}
		jobRepo := manager.JobRepository()

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultVideosPageSize)

		videos, err := jobRepo.GetAll(limit, (page-1)*limit)
		if err != nil {
			logger.Error("Error querying videos from database: %v", err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if videos == nil {
			videos = []model.VideoJob{}
		}

		totalCount, err := jobRepo.GetTotalCount()
		if err != nil {
			logger.Error("Error counting videos: %v", err)
			totalCount = len(videos)
		}

		respondJSON(w, dto.VideosData{
			Videos:      videos,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}, http.StatusOK)
	}
}

// ViewVideoHandler returns one job, including its per-label detection counts.
func ViewVideoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !manager.HistoryEnabled() {
			respondError(w, "Video history unavailable", http.StatusServiceUnavailable)
			return
		}

		id := r.URL.Query().Get("id")
		if id == "" {
			respondError(w, "id parameter is required", http.StatusBadRequest)
			return
		}

		job, err := manager.JobRepository().GetByID(id)
		if err != nil {
			logger.Error("Error loading video job %s: %v", id, err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if job == nil {
			respondError(w, "Video not found", http.StatusNotFound)
			return
		}

		if detectionRepo := manager.DetectionRepository(); detectionRepo != nil {
			counts, err := detectionRepo.GetCountsByJobID(id)
			if err != nil {
				logger.Error("Error loading detections for job %s: %v", id, err)
			} else {
				job.Detections = counts
			}
		}

		respondJSON(w, job, http.StatusOK)
	}
}

// DeleteVideoHandler removes a job record and its output file.
func DeleteVideoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete && r.Method != http.MethodPost {
			respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !manager.HistoryEnabled() {
			respondError(w, "Video history unavailable", http.StatusServiceUnavailable)
			return
		}

		id := r.URL.Query().Get("id")
		if id == "" {
			respondError(w, "id parameter is required", http.StatusBadRequest)
			return
		}

		jobRepo := manager.JobRepository()
		job, err := jobRepo.GetByID(id)
		if err != nil {
			logger.Error("Error loading video job %s: %v", id, err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if job == nil {
			respondError(w, "Video not found", http.StatusNotFound)
			return
		}

		// Outputs are shared by identical uploads; keep the file while another job references it.
		if err := jobRepo.Delete(id); err != nil {
			logger.Error("Failed to delete video job %s: %v", id, err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if shared, err := jobRepo.CountByStorageKey(job.StorageKey); err == nil && shared == 0 {
			if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
				logger.Error("Failed to delete file %s: %v", job.OutputPath, err)
			}
		}

		logger.Info("Deleted video job: %s", id)
		respondJSON(w, map[string]string{"status": "deleted", "id": id}, http.StatusOK)
	}
}
