package ai

import (
	"fmt"
	"image"
	"image/color"

	"aerodetect/internal/dto"

	"gocv.io/x/gocv"
)

var palette = []color.RGBA{
	{R: 255, G: 56, B: 56},
	{R: 255, G: 157, B: 151},
	{R: 255, G: 112, B: 31},
	{R: 255, G: 178, B: 29},
	{R: 207, G: 210, B: 49},
	{R: 72, G: 249, B: 10},
	{R: 26, G: 147, B: 52},
	{R: 0, G: 212, B: 187},
	{R: 44, G: 153, B: 168},
	{R: 0, G: 194, B: 255},
}

var textColor = color.RGBA{R: 255, G: 255, B: 255}

const (
	boxThickness = 2
	fontScale    = 0.5
	fontFace     = gocv.FontHersheySimplex
)

// ColorFor returns the overlay color of a class.
func ColorFor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// DrawDetections burns boxes and "label confidence" captions into the frame.
func DrawDetections(frame *gocv.Mat, detections []dto.DetectionResult) error {
	for _, detection := range detections {
		boxColor := ColorFor(detection.ClassID)
		rect := image.Rect(detection.X, detection.Y, detection.X+detection.Width, detection.Y+detection.Height)
		if err := gocv.Rectangle(frame, rect, boxColor, boxThickness); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}

		caption := fmt.Sprintf("%s %.2f", detection.Label, detection.Confidence)
		textSize := gocv.GetTextSize(caption, fontFace, fontScale, 1)

		// Caption sits above the box, or inside it when the box touches the top edge.
		top := rect.Min.Y - textSize.Y - 6
		if top < 0 {
			top = rect.Min.Y
		}
		background := image.Rect(rect.Min.X, top, rect.Min.X+textSize.X+4, top+textSize.Y+6)
		if err := gocv.Rectangle(frame, background, boxColor, -1); err != nil {
			return fmt.Errorf("failed to draw caption background: %v", err)
		}

		if err := gocv.PutText(frame, caption, image.Pt(background.Min.X+2, background.Max.Y-4), fontFace, fontScale, textColor, 1); err != nil {
			return fmt.Errorf("failed to draw text: %v", err)
		}
	}

	return nil
}
