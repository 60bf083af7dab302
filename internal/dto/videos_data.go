package dto

import "aerodetect/internal/model"

// VideosData is a paginated response payload for the video job history.
type VideosData struct {
	Videos      []model.VideoJob `json:"videos"`
	Length      int              `json:"length"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	Limit       int              `json:"pageSize"`
}
