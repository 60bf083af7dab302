package dto

// ImagesResponse is the success payload of the batch image endpoint.
type ImagesResponse struct {
	ResultImages []string `json:"result_images"`
}

// VideoResponse is the success payload of the video endpoint.
type VideoResponse struct {
	VideoURL string `json:"video_url"`
}

// ErrorResponse is the error envelope shared by every JSON endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports whether the detection model is ready.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}
