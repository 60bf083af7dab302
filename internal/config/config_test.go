package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "MAX_IMAGES", "VIDEO_CODEC", "CONFIDENCE_THRESHOLD"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	cfg := Load()

	if cfg.Port != 8000 {
		t.Errorf("Expected default port 8000, got %d", cfg.Port)
	}
	if cfg.MaxImages != 8 {
		t.Errorf("Expected default max images 8, got %d", cfg.MaxImages)
	}
	if cfg.VideoCodec != "avc1" {
		t.Errorf("Expected default codec avc1, got %s", cfg.VideoCodec)
	}
	if cfg.ConfidenceThreshold != 0.25 {
		t.Errorf("Expected default confidence 0.25, got %v", cfg.ConfidenceThreshold)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_IMAGES", "3")
	t.Setenv("NMS_THRESHOLD", "0.6")
	t.Setenv("MAX_UPLOAD_MB", "64")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.MaxImages != 3 {
		t.Errorf("Expected max images 3, got %d", cfg.MaxImages)
	}
	if cfg.NMSThreshold != 0.6 {
		t.Errorf("Expected NMS threshold 0.6, got %v", cfg.NMSThreshold)
	}
	if cfg.MaxUploadSize != 64 {
		t.Errorf("Expected upload limit 64, got %d", cfg.MaxUploadSize)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("VIDEO_CODEC", "")
	os.Unsetenv("VIDEO_CODEC")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("VIDEO_CODEC=MJPG\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	cfg := Load()
	if cfg.VideoCodec != "MJPG" {
		t.Errorf("Expected codec from .env, got %s", cfg.VideoCodec)
	}
}

func TestGetEnvAsInt_Invalid(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	if v := getEnvAsInt("SOME_INT", 7); v != 7 {
		t.Errorf("Expected fallback 7, got %d", v)
	}
}

func TestGetEnvAsFloat_Invalid(t *testing.T) {
	t.Setenv("SOME_FLOAT", "1.2.3")
	if v := getEnvAsFloat("SOME_FLOAT", 0.5); v != 0.5 {
		t.Errorf("Expected fallback 0.5, got %v", v)
	}
}
