// Package metrics exposes Prometheus instrumentation for the prediction endpoints.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aerodetect"

// Metrics holds the collectors of one server instance on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	imagesTotal       *prometheus.CounterVec
	videosTotal       *prometheus.CounterVec
	framesTotal       prometheus.Counter
	detectionsTotal   *prometheus.CounterVec
	requestErrors     *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
	videosActive      prometheus.Gauge
}

// New creates the collectors and registers them together with the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		imagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Uploaded images by outcome (annotated or skipped).",
		}, []string{"outcome"}),
		videosTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_total",
			Help:      "Processed videos by final status.",
		}, []string{"status"}),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_frames_total",
			Help:      "Video frames annotated and written.",
		}),
		detectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Objects detected by class label.",
		}, []string{"label"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Failed prediction requests by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent annotating a single image or frame.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		videosActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "videos_in_progress",
			Help:      "Videos currently being annotated.",
		}),
	}

	m.registry.MustRegister(
		m.imagesTotal,
		m.videosTotal,
		m.framesTotal,
		m.detectionsTotal,
		m.requestErrors,
		m.inferenceDuration,
		m.videosActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ImageAnnotated() { m.imagesTotal.WithLabelValues("annotated").Inc() }

func (m *Metrics) ImageSkipped() { m.imagesTotal.WithLabelValues("skipped").Inc() }

func (m *Metrics) FrameWritten() { m.framesTotal.Inc() }

func (m *Metrics) VideoStarted() { m.videosActive.Inc() }

// VideoFinished records the final status of a video and leaves the in-progress gauge.
func (m *Metrics) VideoFinished(status string) {
	m.videosActive.Dec()
	m.videosTotal.WithLabelValues(status).Inc()
}

// Detections adds per-label detection counts.
func (m *Metrics) Detections(counts map[string]int) {
	for label, n := range counts {
		m.detectionsTotal.WithLabelValues(label).Add(float64(n))
	}
}

func (m *Metrics) RequestFailed(endpoint string, code int) {
	m.requestErrors.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// ObserveInference records how long an annotation took since start.
func (m *Metrics) ObserveInference(start time.Time) {
	m.inferenceDuration.Observe(time.Since(start).Seconds())
}
