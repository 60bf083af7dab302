package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestImageCounters(t *testing.T) {
	m := New()

	m.ImageAnnotated()
	m.ImageAnnotated()
	m.ImageSkipped()

	if got := testutil.ToFloat64(m.imagesTotal.WithLabelValues("annotated")); got != 2 {
		t.Errorf("Expected 2 annotated images, got %f", got)
	}
	if got := testutil.ToFloat64(m.imagesTotal.WithLabelValues("skipped")); got != 1 {
		t.Errorf("Expected 1 skipped image, got %f", got)
	}
}

func TestVideoLifecycle(t *testing.T) {
	m := New()

	m.VideoStarted()
	if got := testutil.ToFloat64(m.videosActive); got != 1 {
		t.Errorf("Expected 1 video in progress, got %f", got)
	}

	m.FrameWritten()
	m.FrameWritten()
	m.Detections(map[string]int{"Drone": 3, "Helicopter": 1})
	m.VideoFinished("completed")

	if got := testutil.ToFloat64(m.videosActive); got != 0 {
		t.Errorf("Expected 0 videos in progress, got %f", got)
	}
	if got := testutil.ToFloat64(m.framesTotal); got != 2 {
		t.Errorf("Expected 2 frames, got %f", got)
	}
	if got := testutil.ToFloat64(m.detectionsTotal.WithLabelValues("Drone")); got != 3 {
		t.Errorf("Expected 3 drones, got %f", got)
	}
	if got := testutil.ToFloat64(m.videosTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("Expected 1 completed video, got %f", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RequestFailed("images", http.StatusBadRequest)
	m.ObserveInference(time.Now().Add(-20 * time.Millisecond))

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		"aerodetect_request_errors_total",
		"aerodetect_inference_duration_seconds",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected %s in metrics output", name)
		}
	}
}
