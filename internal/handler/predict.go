package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"aerodetect/internal/config"
	"aerodetect/internal/dto"
	"aerodetect/internal/logger"
	"aerodetect/internal/service"
	"aerodetect/internal/service/media"
)

const (
	imagesField = "files"
	videoField  = "video"

	// multipartMemory is kept in memory while parsing; larger parts spill to temp files.
	multipartMemory = 32 << 20
)

// PredictImagesHandler annotates a batch of uploaded images and returns them as data URIs.
func PredictImagesHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		fail := func(message string, status int) {
			manager.Metrics().RequestFailed("images", status)
			respondError(w, message, status)
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize<<20)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			logger.Warning("Invalid image upload: %v", err)
			fail(fmt.Sprintf("Invalid multipart form: %v", err), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File[imagesField]
		if len(headers) > manager.MaxImages() {
			fail(fmt.Sprintf("Maximum %d images allowed.", manager.MaxImages()), http.StatusBadRequest)
			return
		}

		files := make([]service.UploadedImage, 0, len(headers))
		for _, header := range headers {
			data, err := readPart(header)
			if err != nil {
				logger.Error("Error reading upload %q: %v", header.Filename, err)
				fail(fmt.Sprintf("Batch prediction failed: %v", err), http.StatusInternalServerError)
				return
			}
			files = append(files, service.UploadedImage{Filename: header.Filename, Data: data})
		}

		results, err := manager.PredictImages(files)
		switch {
		case errors.Is(err, service.ErrTooManyImages):
			fail(fmt.Sprintf("Maximum %d images allowed.", manager.MaxImages()), http.StatusBadRequest)
			return
		case errors.Is(err, service.ErrNoValidImages):
			fail("No valid images found.", http.StatusBadRequest)
			return
		case err != nil:
			logger.Error("Batch prediction failed: %v", err)
			fail(fmt.Sprintf("Batch prediction failed: %v", err), http.StatusInternalServerError)
			return
		}

		respondJSON(w, dto.ImagesResponse{ResultImages: results}, http.StatusOK)
	}
}

// PredictVideoHandler annotates an uploaded video and returns the URL of the result.
func PredictVideoHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		fail := func(message string, status int) {
			manager.Metrics().RequestFailed("video", status)
			respondError(w, message, status)
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize<<20)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			logger.Warning("Invalid video upload: %v", err)
			fail(fmt.Sprintf("Invalid multipart form: %v", err), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(videoField)
		if err != nil {
			fail("Video file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		job, err := manager.PredictVideo(header.Filename, file)
		if err != nil {
			logger.Error("Video prediction failed for %q: %v", header.Filename, err)
			if errors.Is(err, media.ErrCannotOpenVideo) {
				fail("Cannot open video file", http.StatusInternalServerError)
				return
			}
			fail(err.Error(), http.StatusInternalServerError)
			return
		}

		respondJSON(w, dto.VideoResponse{VideoURL: job.OutputURL}, http.StatusOK)
	}
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
