package service

import (
	"errors"
	"io"
	"time"

	"aerodetect/internal/config"
	"aerodetect/internal/dto"
	"aerodetect/internal/logger"
	"aerodetect/internal/metrics"
	"aerodetect/internal/model"
	"aerodetect/internal/repository"
	"aerodetect/internal/service/media"
	"aerodetect/internal/service/storage"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

var (
	// ErrTooManyImages is returned before any decoding when a batch exceeds the configured limit.
	ErrTooManyImages = errors.New("too many images")
	// ErrNoValidImages is returned when no file of a batch could be decoded.
	ErrNoValidImages = errors.New("no valid images found")
)

// Detector is the shared model the manager runs frames through.
type Detector interface {
	media.Annotator
	Loaded() bool
}

// ProgressBroadcaster receives video progress events.
type ProgressBroadcaster interface {
	Broadcast(progress dto.VideoProgress)
}

// UploadedImage is one file of a batch request.
type UploadedImage struct {
	Filename string
	Data     []byte
}

// Manager coordinates decoding, detection and encoding for the prediction endpoints.
type Manager struct {
	detector      Detector
	store         *storage.UploadStore
	hub           ProgressBroadcaster
	jobRepo       repository.VideoJobRepository
	detectionRepo repository.DetectionRepository
	metrics       *metrics.Metrics
	logger        *logger.Logger

	// Identical uploads share an output path; one job per key writes at a time.
	videoLocks *keyedMutex

	maxImages     int
	progressEvery int
	videoCodec    string
}

// NewManager wires the manager. jobRepo and detectionRepo may be nil when history is unavailable.
func NewManager(detector Detector, store *storage.UploadStore, hub ProgressBroadcaster,
	jobRepo repository.VideoJobRepository, detectionRepo repository.DetectionRepository,
	metrics *metrics.Metrics, config *config.Config, logger *logger.Logger) *Manager {
	manager := &Manager{
		detector:      detector,
		store:         store,
		hub:           hub,
		jobRepo:       jobRepo,
		detectionRepo: detectionRepo,
		metrics:       metrics,
		logger:        logger,
		videoLocks:    newKeyedMutex(),
		maxImages:     config.MaxImages,
		progressEvery: config.ProgressEvery,
		videoCodec:    config.VideoCodec,
	}
	if manager.maxImages <= 0 {
		manager.maxImages = 8
	}
	if manager.progressEvery <= 0 {
		manager.progressEvery = 10
	}
	if manager.videoCodec == "" {
		manager.videoCodec = "avc1"
	}
	return manager
}

func (m *Manager) MaxImages() int { return m.maxImages }

func (m *Manager) ModelLoaded() bool { return m.detector.Loaded() }

func (m *Manager) Metrics() *metrics.Metrics { return m.metrics }

// HistoryEnabled reports whether video jobs are being persisted.
func (m *Manager) HistoryEnabled() bool { return m.jobRepo != nil }

func (m *Manager) JobRepository() repository.VideoJobRepository { return m.jobRepo }

func (m *Manager) DetectionRepository() repository.DetectionRepository { return m.detectionRepo }

// Annotate runs one frame through the detector and records its latency.
func (m *Manager) Annotate(frame gocv.Mat) (gocv.Mat, []dto.DetectionResult, error) {
	start := time.Now()
	annotated, detections, err := m.detector.Annotate(frame)
	m.metrics.ObserveInference(start)
	return annotated, detections, err
}

// PredictImages annotates every decodable image and returns them as JPEG
// data URIs in upload order. Undecodable files are skipped. Any other
// failure aborts the whole batch.
func (m *Manager) PredictImages(files []UploadedImage) ([]string, error) {
	if len(files) > m.maxImages {
		return nil, ErrTooManyImages
	}

	results := make([]string, 0, len(files))
	for _, file := range files {
		uri, err := m.predictImage(file)
		if errors.Is(err, media.ErrUndecodable) {
			m.logger.Warning("Skipping undecodable image %q: %v", file.Filename, err)
			m.metrics.ImageSkipped()
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, uri)
	}

	if len(results) == 0 {
		return nil, ErrNoValidImages
	}
	m.logger.Info("Annotated %d of %d images", len(results), len(files))
	return results, nil
}

func (m *Manager) predictImage(file UploadedImage) (string, error) {
	frame, err := media.DecodeImage(file.Data)
	if err != nil {
		return "", err
	}
	defer frame.Close()

	annotated, detections, err := m.Annotate(frame)
	defer annotated.Close()
	if err != nil {
		return "", err
	}

	uri, err := media.EncodeDataURI(annotated)
	if err != nil {
		return "", err
	}

	m.metrics.ImageAnnotated()
	m.metrics.Detections(countLabels(detections))
	return uri, nil
}

// PredictVideo persists the upload, annotates it frame by frame and returns
// the finished job. On failure the returned job carries the failed state.
func (m *Manager) PredictVideo(filename string, body io.Reader) (*model.VideoJob, error) {
	upload, err := m.store.Save(filename, body)
	if err != nil {
		return nil, err
	}

	job := &model.VideoJob{
		ID:           uuid.New().String(),
		StorageKey:   upload.Key,
		OriginalName: filename,
		InputPath:    upload.InputPath,
		OutputPath:   upload.OutputPath,
		OutputURL:    upload.OutputURL,
		Status:       model.VideoStatusProcessing,
		CreatedAt:    time.Now(),
	}
	if m.jobRepo != nil {
		if err := m.jobRepo.Insert(job); err != nil {
			m.logger.Error("Error saving video job %s: %v", job.ID, err)
		}
	}

	unlock := m.videoLocks.Lock(upload.Key)
	defer unlock()

	m.metrics.VideoStarted()
	m.logger.Info("Processing video %q as job %s", filename, job.ID)

	info, err := media.ProcessVideo(upload.InputPath, upload.OutputPath, m, m.videoCodec, func(frames, total int) {
		m.metrics.FrameWritten()
		if frames%m.progressEvery == 0 {
			m.hub.Broadcast(dto.VideoProgress{Job: job.ID, Filename: filename, Frames: frames, Total: total})
		}
	})

	job.Frames = info.Frames
	job.FPS = info.FPS
	job.Width = info.Width
	job.Height = info.Height
	job.Detections = info.Detections
	finished := time.Now()
	job.FinishedAt = &finished

	if err != nil {
		job.Status = model.VideoStatusFailed
		job.Error = err.Error()
		m.finishVideo(job)
		return job, err
	}

	job.Status = model.VideoStatusCompleted
	m.finishVideo(job)
	return job, nil
}

func (m *Manager) finishVideo(job *model.VideoJob) {
	m.metrics.VideoFinished(job.Status)
	m.metrics.Detections(job.Detections)
	m.hub.Broadcast(dto.VideoProgress{
		Job:      job.ID,
		Filename: job.OriginalName,
		Frames:   job.Frames,
		Total:    job.Frames,
		Done:     true,
		Error:    job.Error,
	})

	if job.Status == model.VideoStatusFailed {
		m.logger.Error("Video job %s failed after %d frames: %s", job.ID, job.Frames, job.Error)
	} else {
		m.logger.Info("Video job %s completed: %d frames at %.2f fps", job.ID, job.Frames, job.FPS)
	}

	if m.jobRepo == nil {
		return
	}

	var err error
	if job.Status == model.VideoStatusFailed {
		err = m.jobRepo.MarkFailed(job.ID, job.Error)
	} else {
		err = m.jobRepo.MarkCompleted(job.ID, job.Frames, job.FPS, job.Width, job.Height)
	}
	if err != nil {
		m.logger.Error("Error updating video job %s: %v", job.ID, err)
	}

	if m.detectionRepo != nil && len(job.Detections) > 0 {
		if err := m.detectionRepo.InsertCounts(job.ID, job.Detections); err != nil {
			m.logger.Error("Error saving detections for job %s: %v", job.ID, err)
		}
	}
}

func countLabels(detections []dto.DetectionResult) map[string]int {
	counts := make(map[string]int, len(detections))
	for _, detection := range detections {
		counts[detection.Label]++
	}
	return counts
}
