package media

import (
	"errors"
	"fmt"

	"aerodetect/internal/dto"

	"gocv.io/x/gocv"
)

// ErrCannotOpenVideo is returned when the persisted upload is not a readable video.
var ErrCannotOpenVideo = errors.New("cannot open video file")

// Annotator turns a frame into an annotated copy of the same size and channel order.
type Annotator interface {
	Annotate(frame gocv.Mat) (gocv.Mat, []dto.DetectionResult, error)
}

// ProgressFunc is called after each written frame. total is the container's
// frame count estimate and may be zero.
type ProgressFunc func(frames, total int)

// VideoInfo describes the source stream and what was written.
type VideoInfo struct {
	FPS        float64
	Width      int
	Height     int
	Frames     int
	Detections map[string]int
}

// ProcessVideo streams inputPath frame by frame through the annotator into a
// new file at outputPath with the source's size and frame rate. Only the
// current frame is held in memory. A failure mid-stream leaves the partially
// written output on disk.
func ProcessVideo(inputPath, outputPath string, annotator Annotator, codec string, onFrame ProgressFunc) (VideoInfo, error) {
	capture, err := gocv.VideoCaptureFile(inputPath)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("%w: %v", ErrCannotOpenVideo, err)
	}
	defer capture.Close()

	if !capture.IsOpened() {
		return VideoInfo{}, ErrCannotOpenVideo
	}

	info := VideoInfo{
		FPS:        capture.Get(gocv.VideoCaptureFPS),
		Width:      int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(capture.Get(gocv.VideoCaptureFrameHeight)),
		Detections: make(map[string]int),
	}
	total := frameTotal(capture.Get(gocv.VideoCaptureFrameCount))

	if info.FPS <= 0 || info.Width <= 0 || info.Height <= 0 {
		return info, fmt.Errorf("invalid video metadata: fps=%.2f size=%dx%d", info.FPS, info.Width, info.Height)
	}

	writer, err := gocv.VideoWriterFile(outputPath, codec, info.FPS, info.Width, info.Height, true)
	if err != nil {
		return info, fmt.Errorf("failed to open video writer: %w", err)
	}
	defer writer.Close()

	if !writer.IsOpened() {
		return info, fmt.Errorf("failed to open video writer for %s with codec %s", outputPath, codec)
	}

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}

		annotated, detections, err := annotator.Annotate(frame)
		if err != nil {
			annotated.Close()
			return info, fmt.Errorf("frame %d: %w", info.Frames, err)
		}

		err = writer.Write(annotated)
		annotated.Close()
		if err != nil {
			return info, fmt.Errorf("failed to write frame %d: %w", info.Frames, err)
		}

		for _, detection := range detections {
			info.Detections[detection.Label]++
		}
		info.Frames++

		if onFrame != nil {
			onFrame(info.Frames, total)
		}
	}

	return info, nil
}

// frameTotal turns the container's frame count into a progress total.
// Streaming containers report -1 or nothing at all.
func frameTotal(count float64) int {
	if count <= 0 {
		return 0
	}
	return int(count)
}

// ProbeVideo reads the stream metadata of a video and counts its frames.
func ProbeVideo(path string) (VideoInfo, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("%w: %v", ErrCannotOpenVideo, err)
	}
	defer capture.Close()

	if !capture.IsOpened() {
		return VideoInfo{}, ErrCannotOpenVideo
	}

	info := VideoInfo{
		FPS:    capture.Get(gocv.VideoCaptureFPS),
		Width:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(capture.Get(gocv.VideoCaptureFrameHeight)),
	}

	frame := gocv.NewMat()
	defer frame.Close()
	for capture.Read(&frame) && !frame.Empty() {
		info.Frames++
	}
	return info, nil
}
