package media

import (
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aerodetect/internal/dto"

	"gocv.io/x/gocv"
)

// ========================================
// Test Helpers
// ========================================

// boxAnnotator draws one fixed box per frame and reports it as a detection.
type boxAnnotator struct {
	calls  int
	failAt int
}

func (a *boxAnnotator) Annotate(frame gocv.Mat) (gocv.Mat, []dto.DetectionResult, error) {
	a.calls++
	if a.failAt > 0 && a.calls == a.failAt {
		return gocv.NewMat(), nil, errors.New("inference exploded")
	}
	annotated := frame.Clone()
	gocv.Rectangle(&annotated, image.Rect(10, 10, 40, 40), color.RGBA{R: 255}, 2)
	return annotated, []dto.DetectionResult{{Label: "Drone", X: 10, Y: 10, Width: 30, Height: 30}}, nil
}

func solidJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 120, 200, 0), height, width, gocv.MatTypeCV8UC3)
	defer mat.Close()

	data, err := EncodeJPEG(mat)
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return data
}

func writeTestVideo(t *testing.T, path string, frames int, fps float64, width, height int) {
	t.Helper()

	writer, err := gocv.VideoWriterFile(path, "MJPG", fps, width, height, true)
	if err != nil {
		t.Fatalf("Failed to create test video: %v", err)
	}
	defer writer.Close()

	for i := 0; i < frames; i++ {
		frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(i*20), 80, 160, 0), height, width, gocv.MatTypeCV8UC3)
		if err := writer.Write(frame); err != nil {
			frame.Close()
			t.Fatalf("Failed to write test frame: %v", err)
		}
		frame.Close()
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func probeVideo(t *testing.T, path string) (frames int, fps float64, width, height int) {
	t.Helper()

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer capture.Close()

	fps = capture.Get(gocv.VideoCaptureFPS)
	width = int(capture.Get(gocv.VideoCaptureFrameWidth))
	height = int(capture.Get(gocv.VideoCaptureFrameHeight))

	frame := gocv.NewMat()
	defer frame.Close()
	for capture.Read(&frame) && !frame.Empty() {
		frames++
	}
	return frames, fps, width, height
}

// ========================================
// Image Tests
// ========================================

func TestDecodeImage_Valid(t *testing.T) {
	mat, err := DecodeImage(solidJPEG(t, 100, 100))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	defer mat.Close()

	if mat.Cols() != 100 || mat.Rows() != 100 {
		t.Errorf("Expected 100x100, got %dx%d", mat.Cols(), mat.Rows())
	}
	if mat.Channels() != 3 {
		t.Errorf("Expected 3 channels, got %d", mat.Channels())
	}
}

func TestDecodeImage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"zero bytes", []byte{}},
		{"nil", nil},
		{"text", []byte("definitely not an image")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat, err := DecodeImage(tt.data)
			defer mat.Close()
			if !errors.Is(err, ErrUndecodable) {
				t.Errorf("Expected ErrUndecodable, got %v", err)
			}
		})
	}
}

func TestEncodeDataURI_RoundTrip(t *testing.T) {
	mat, err := DecodeImage(solidJPEG(t, 100, 100))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	defer mat.Close()

	uri, err := EncodeDataURI(mat)
	if err != nil {
		t.Fatalf("EncodeDataURI failed: %v", err)
	}
	if !strings.HasPrefix(uri, DataURIPrefix) {
		t.Fatalf("Expected data URI prefix, got %q", uri[:32])
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	if err != nil {
		t.Fatalf("Payload is not valid base64: %v", err)
	}
	if payload[0] != 0xFF || payload[1] != 0xD8 {
		t.Error("Expected JPEG SOI marker")
	}

	decoded, err := DecodeImage(payload)
	if err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	defer decoded.Close()
	if decoded.Cols() != 100 || decoded.Rows() != 100 {
		t.Errorf("Expected 100x100 round trip, got %dx%d", decoded.Cols(), decoded.Rows())
	}
}

// ========================================
// Video Tests
// ========================================

func TestProcessVideo_PreservesStream(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.avi")
	output := filepath.Join(dir, "input_output.avi")
	writeTestVideo(t, input, 10, 24, 320, 240)

	annotator := &boxAnnotator{}
	var progress []int
	negativeTotal := false
	info, err := ProcessVideo(input, output, annotator, "MJPG", func(frames, total int) {
		progress = append(progress, frames)
		if total < 0 {
			negativeTotal = true
		}
	})
	if err != nil {
		t.Fatalf("ProcessVideo failed: %v", err)
	}

	if info.Frames != 10 {
		t.Errorf("Expected 10 frames processed, got %d", info.Frames)
	}
	if annotator.calls != 10 {
		t.Errorf("Expected annotator to see every frame, got %d calls", annotator.calls)
	}
	if len(progress) != 10 || progress[9] != 10 {
		t.Errorf("Unexpected progress callbacks %v", progress)
	}
	if negativeTotal {
		t.Error("Expected progress total never to be negative")
	}
	if info.Detections["Drone"] != 10 {
		t.Errorf("Expected 10 drone detections, got %v", info.Detections)
	}

	frames, fps, width, height := probeVideo(t, output)
	if frames != 10 {
		t.Errorf("Expected 10 output frames, got %d", frames)
	}
	if math.Abs(fps-24) > 0.01 {
		t.Errorf("Expected 24 fps, got %v", fps)
	}
	if width != 320 || height != 240 {
		t.Errorf("Expected 320x240, got %dx%d", width, height)
	}
}

func TestFrameTotal(t *testing.T) {
	tests := []struct {
		name     string
		count    float64
		expected int
	}{
		{"known length", 240, 240},
		{"unknown length", -1, 0},
		{"empty", 0, 0},
		{"fractional estimate", 12.9, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := frameTotal(tt.count); got != tt.expected {
				t.Errorf("frameTotal(%v) = %d, expected %d", tt.count, got, tt.expected)
			}
		})
	}
}

func TestProbeVideo(t *testing.T) {
	input := filepath.Join(t.TempDir(), "probe.avi")
	writeTestVideo(t, input, 5, 12, 160, 120)

	info, err := ProbeVideo(input)
	if err != nil {
		t.Fatalf("ProbeVideo failed: %v", err)
	}
	if info.Frames != 5 || info.Width != 160 || info.Height != 120 {
		t.Errorf("Unexpected info %+v", info)
	}
	if math.Abs(info.FPS-12) > 0.01 {
		t.Errorf("Expected 12 fps, got %v", info.FPS)
	}
}

func TestProcessVideo_CannotOpen(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.mp4")
	writeFile(t, input, []byte("not a video"))

	_, err := ProcessVideo(input, filepath.Join(dir, "out.mp4"), &boxAnnotator{}, "MJPG", nil)
	if err == nil {
		t.Fatal("Expected error for unreadable video")
	}
}

func TestProcessVideo_AnnotatorFailureAborts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.avi")
	writeTestVideo(t, input, 10, 24, 320, 240)

	annotator := &boxAnnotator{failAt: 4}
	info, err := ProcessVideo(input, filepath.Join(dir, "out.avi"), annotator, "MJPG", nil)
	if err == nil || !strings.Contains(err.Error(), "inference exploded") {
		t.Fatalf("Expected annotator error to propagate, got %v", err)
	}
	if info.Frames != 3 {
		t.Errorf("Expected 3 frames written before failure, got %d", info.Frames)
	}
	if annotator.calls != 4 {
		t.Errorf("Expected loop to stop at the failing frame, got %d calls", annotator.calls)
	}
}
