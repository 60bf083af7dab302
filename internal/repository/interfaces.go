package repository

import "aerodetect/internal/model"

// VideoJobRepository defines the interface for video job persistence.
type VideoJobRepository interface {
	// Create operations
	Insert(job *model.VideoJob) error

	// Update operations
	MarkCompleted(id string, frames int, fps float64, width, height int) error
	MarkFailed(id string, reason string) error

	// Read operations
	GetByID(id string) (*model.VideoJob, error)
	GetAll(limit, offset int) ([]model.VideoJob, error)
	GetTotalCount() (int, error)
	CountByStorageKey(key string) (int, error)

	// Delete operations
	Delete(id string) error
}

// DetectionRepository stores per-job detection tallies keyed by class label.
type DetectionRepository interface {
	InsertCounts(jobID string, counts map[string]int) error
	GetCountsByJobID(jobID string) (map[string]int, error)
}
