package dto

// DetectionResult is one box found by the detector, in source-frame pixels.
type DetectionResult struct {
	Label      string
	ClassID    int
	Confidence float64
	X          int
	Y          int
	Width      int
	Height     int
}
