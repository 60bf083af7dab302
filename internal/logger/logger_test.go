package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aerodetect/internal/config"
)

func setupTestLogger(t *testing.T) (*Logger, string) {
	t.Helper()

	dir := t.TempDir()
	return NewLogger(&config.Config{LogDirectory: dir}), dir
}

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	l, dir := setupTestLogger(t)

	l.Info("processed %d frames", 10)
	l.Warning("skipped %s", "broken.jpg")
	l.Error("inference failed: %v", "boom")

	tests := []struct {
		level    Level
		expected string
	}{
		{LevelInfo, "processed 10 frames"},
		{LevelWarning, "skipped broken.jpg"},
		{LevelError, "inference failed: boom"},
	}

	for _, tt := range tests {
		data, err := os.ReadFile(filepath.Join(dir, tt.level.FileName()))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", tt.level.FileName(), err)
		}
		if !strings.Contains(string(data), tt.expected) {
			t.Errorf("Expected %s to contain %q, got %q", tt.level.FileName(), tt.expected, string(data))
		}
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	l, dir := setupTestLogger(t)

	l.Warning("something to clear")

	if err := l.CleanLogs(LevelWarning); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LevelWarning.FileName()))
	if err != nil {
		t.Fatalf("Failed to read warning log: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty warning log, got %q", string(data))
	}
}

func TestLevel_FileName(t *testing.T) {
	if LevelError.FileName() != "error.log" {
		t.Errorf("Expected error.log, got %s", LevelError.FileName())
	}
}
