package model

import "time"

// Video job states.
const (
	VideoStatusProcessing = "processing"
	VideoStatusCompleted  = "completed"
	VideoStatusFailed     = "failed"
)

// VideoJob records one video annotation request.
type VideoJob struct {
	ID           string         `json:"id"`
	StorageKey   string         `json:"storage_key"`
	OriginalName string         `json:"original_name"`
	InputPath    string         `json:"-"`
	OutputPath   string         `json:"-"`
	OutputURL    string         `json:"video_url"`
	Status       string         `json:"status"`
	Frames       int            `json:"frames"`
	FPS          float64        `json:"fps"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Error        string         `json:"error,omitempty"`
	Detections   map[string]int `json:"detections,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}
