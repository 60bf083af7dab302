package handler

import (
	"net/http"

	"aerodetect/internal/dto"
	"aerodetect/internal/service"
)

// HealthHandler reports liveness and whether the detection model is loaded.
func HealthHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, dto.HealthResponse{Status: "ok", ModelLoaded: manager.ModelLoaded()}, http.StatusOK)
	}
}
