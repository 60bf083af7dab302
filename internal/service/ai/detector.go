package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"

	"aerodetect/internal/config"
	"aerodetect/internal/dto"
	"aerodetect/internal/logger"

	"gocv.io/x/gocv"
)

// ErrModelNotLoaded is returned when inference is requested without a network.
var ErrModelNotLoaded = errors.New("detection network not initialized")

// DetectorService wraps the single ONNX detection network shared by all requests.
type DetectorService struct {
	net                 gocv.Net
	loaded              atomic.Bool
	labels              []string
	inputSize           int
	confidenceThreshold float32
	nmsThreshold        float32
	modelPath           string
	labelsPath          string
	logger              *logger.Logger

	// gocv.Net keeps per-call state between SetInput and Forward, and the
	// Mat returned by Forward aliases the net's output blob. Both are only
	// touched while inferMu is held.
	inferMu sync.Mutex
	runNet  forwardFunc
}

// forwardFunc runs one forward pass. The returned data aliases memory owned
// by the network and is only valid until release is called.
type forwardFunc func(blob gocv.Mat) (data []float32, dims []int, release func(), err error)

// NewDetectorService creates a detector and attempts to load the network once.
// A missing or broken model is logged; the service then reports ErrModelNotLoaded.
func NewDetectorService(config *config.Config, logger *logger.Logger) *DetectorService {
	service := &DetectorService{
		labels:              DefaultLabels,
		inputSize:           config.InputSize,
		confidenceThreshold: float32(config.ConfidenceThreshold),
		nmsThreshold:        float32(config.NMSThreshold),
		modelPath:           config.ModelPath,
		labelsPath:          config.LabelsPath,
		logger:              logger,
	}
	service.runNet = service.netForward
	if service.inputSize <= 0 {
		service.inputSize = 640
	}

	if service.labelsPath != "" {
		labels, err := LoadLabels(service.labelsPath)
		if err != nil {
			service.logger.Warning("Could not load labels, using defaults: %v", err)
		} else {
			service.labels = labels
		}
	}

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
		return service
	}

	return service
}

// initializeNet loads the ONNX network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.loaded.Store(true)
	s.logger.Info("Detection network initialized from %s (%d labels)", s.modelPath, len(s.labels))
	return nil
}

// Loaded reports whether the network is ready for inference.
func (s *DetectorService) Loaded() bool {
	return s.loaded.Load()
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.inferMu.Lock()
	defer s.inferMu.Unlock()

	if !s.loaded.Swap(false) {
		return nil
	}
	return s.net.Close()
}

// Detect runs a single forward pass on a BGR frame and returns the boxes that
// survive the confidence filter and NMS, in frame pixel coordinates.
func (s *DetectorService) Detect(frame gocv.Mat) ([]dto.DetectionResult, error) {
	if !s.loaded.Load() {
		return nil, ErrModelNotLoaded
	}
	if frame.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	// swapRB converts the BGR frame to the RGB order the model was trained on.
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(s.inputSize, s.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	data, dims, err := s.forward(blob)
	if err != nil {
		return nil, err
	}

	layout, err := newOutputLayout(dims)
	if err != nil {
		return nil, err
	}

	scaleX := float64(frame.Cols()) / float64(s.inputSize)
	scaleY := float64(frame.Rows()) / float64(s.inputSize)
	candidates := decodeOutput(data, layout, scaleX, scaleY, s.confidenceThreshold)
	if len(candidates.boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(candidates.boxes, candidates.scores, s.confidenceThreshold, s.nmsThreshold)

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	results := make([]dto.DetectionResult, 0, len(keep))
	for _, idx := range keep {
		box := candidates.boxes[idx].Intersect(bounds)
		if box.Empty() {
			continue
		}
		classID := candidates.classIDs[idx]
		results = append(results, dto.DetectionResult{
			Label:      s.labelFor(classID),
			ClassID:    classID,
			Confidence: float64(candidates.scores[idx]),
			X:          box.Min.X,
			Y:          box.Min.Y,
			Width:      box.Dx(),
			Height:     box.Dy(),
		})
	}

	return results, nil
}

// forward runs the network under inferMu and returns a private copy of the
// output tensor together with its shape.
func (s *DetectorService) forward(blob gocv.Mat) ([]float32, []int, error) {
	s.inferMu.Lock()
	defer s.inferMu.Unlock()

	if !s.loaded.Load() {
		return nil, nil, ErrModelNotLoaded
	}

	view, dims, release, err := s.runNet(blob)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	data := make([]float32, len(view))
	copy(data, view)
	return data, append([]int(nil), dims...), nil
}

func (s *DetectorService) netForward(blob gocv.Mat) ([]float32, []int, func(), error) {
	s.net.SetInput(blob, "")
	output := s.net.Forward("")

	data, err := output.DataPtrFloat32()
	if err != nil {
		output.Close()
		return nil, nil, nil, fmt.Errorf("failed to read network output: %w", err)
	}

	return data, output.Size(), func() { output.Close() }, nil
}

// Annotate returns a copy of the frame with every detection drawn on it.
// The caller owns the returned Mat.
func (s *DetectorService) Annotate(frame gocv.Mat) (gocv.Mat, []dto.DetectionResult, error) {
	detections, err := s.Detect(frame)
	if err != nil {
		return gocv.NewMat(), nil, err
	}

	annotated := frame.Clone()
	if err := DrawDetections(&annotated, detections); err != nil {
		annotated.Close()
		return gocv.NewMat(), nil, err
	}

	return annotated, detections, nil
}

func (s *DetectorService) labelFor(classID int) string {
	if classID >= 0 && classID < len(s.labels) {
		return s.labels[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}
