package dto

// VideoProgress is pushed to progress subscribers while a video is annotated.
type VideoProgress struct {
	Job      string `json:"job"`
	Filename string `json:"filename"`
	Frames   int    `json:"frames"`
	Total    int    `json:"total"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}
