package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"aerodetect/internal/model"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func newTestJob(id string, created time.Time) *model.VideoJob {
	return &model.VideoJob{
		ID:           id,
		StorageKey:   "0123456789abcdef",
		OriginalName: "clip.mp4",
		InputPath:    "/uploads/0123456789abcdef.mp4",
		OutputPath:   "/output/0123456789abcdef_output.mp4",
		OutputURL:    "/output/0123456789abcdef_output.mp4",
		Status:       model.VideoStatusProcessing,
		CreatedAt:    created,
	}
}

// ========================================
// Video Job Repository Tests
// ========================================

func TestVideoJobRepository_InsertAndGet(t *testing.T) {
	repo := NewVideoJobRepository(setupTestDB(t))

	if err := repo.Insert(newTestJob("job-1", time.Now())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	job, err := repo.GetByID("job-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job == nil {
		t.Fatal("Expected job, got nil")
	}
	if job.OriginalName != "clip.mp4" {
		t.Errorf("Expected original name clip.mp4, got %s", job.OriginalName)
	}
	if job.Status != model.VideoStatusProcessing {
		t.Errorf("Expected status processing, got %s", job.Status)
	}
	if job.FinishedAt != nil {
		t.Error("Expected nil FinishedAt for a running job")
	}
}

func TestVideoJobRepository_GetByID_NotFound(t *testing.T) {
	repo := NewVideoJobRepository(setupTestDB(t))

	job, err := repo.GetByID("missing")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job != nil {
		t.Errorf("Expected nil job, got %+v", job)
	}
}

func TestVideoJobRepository_MarkCompleted(t *testing.T) {
	repo := NewVideoJobRepository(setupTestDB(t))
	repo.Insert(newTestJob("job-1", time.Now()))

	if err := repo.MarkCompleted("job-1", 10, 24, 320, 240); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	job, _ := repo.GetByID("job-1")
	if job.Status != model.VideoStatusCompleted {
		t.Errorf("Expected status completed, got %s", job.Status)
	}
	if job.Frames != 10 || job.FPS != 24 || job.Width != 320 || job.Height != 240 {
		t.Errorf("Unexpected metadata: %+v", job)
	}
	if job.FinishedAt == nil {
		t.Error("Expected FinishedAt to be set")
	}
}

func TestVideoJobRepository_MarkFailed(t *testing.T) {
	repo := NewVideoJobRepository(setupTestDB(t))
	repo.Insert(newTestJob("job-1", time.Now()))

	if err := repo.MarkFailed("job-1", "Cannot open video file"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	job, _ := repo.GetByID("job-1")
	if job.Status != model.VideoStatusFailed {
		t.Errorf("Expected status failed, got %s", job.Status)
	}
	if job.Error != "Cannot open video file" {
		t.Errorf("Expected error text to be stored, got %q", job.Error)
	}
}

func TestVideoJobRepository_GetAll_Pagination(t *testing.T) {
	repo := NewVideoJobRepository(setupTestDB(t))

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		if err := repo.Insert(newTestJob(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}

	tests := []struct {
		name     string
		limit    int
		offset   int
		expected []string
	}{
		{"first page", 2, 0, []string{"e", "d"}},
		{"second page", 2, 2, []string{"c", "b"}},
		{"last page", 2, 4, []string{"a"}},
		{"no limit", 0, 0, []string{"e", "d", "c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := repo.GetAll(tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}
			if len(jobs) != len(tt.expected) {
				t.Fatalf("Expected %d jobs, got %d", len(tt.expected), len(jobs))
			}
			for i, job := range jobs {
				if job.ID != tt.expected[i] {
					t.Errorf("Position %d: expected %s, got %s", i, tt.expected[i], job.ID)
				}
			}
		})
	}

	count, err := repo.GetTotalCount()
	if err != nil {
		t.Fatalf("GetTotalCount failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 jobs, got %d", count)
	}
}

func TestVideoJobRepository_CountByStorageKey(t *testing.T) {
	repo := NewVideoJobRepository(setupTestDB(t))

	repo.Insert(newTestJob("job-1", time.Now()))
	repo.Insert(newTestJob("job-2", time.Now()))

	count, err := repo.CountByStorageKey("0123456789abcdef")
	if err != nil {
		t.Fatalf("CountByStorageKey failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 jobs sharing the key, got %d", count)
	}

	count, _ = repo.CountByStorageKey("ffffffffffffffff")
	if count != 0 {
		t.Errorf("Expected 0 jobs for unknown key, got %d", count)
	}
}

func TestVideoJobRepository_Delete_CascadesDetections(t *testing.T) {
	db := setupTestDB(t)
	jobs := NewVideoJobRepository(db)
	detections := NewDetectionRepository(db)

	jobs.Insert(newTestJob("job-1", time.Now()))
	if err := detections.InsertCounts("job-1", map[string]int{"Drone": 3}); err != nil {
		t.Fatalf("InsertCounts failed: %v", err)
	}

	if err := jobs.Delete("job-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	counts, err := detections.GetCountsByJobID("job-1")
	if err != nil {
		t.Fatalf("GetCountsByJobID failed: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("Expected detections to be removed, got %v", counts)
	}
}

// ========================================
// Detection Repository Tests
// ========================================

func TestDetectionRepository_Counts(t *testing.T) {
	db := setupTestDB(t)
	NewVideoJobRepository(db).Insert(newTestJob("job-1", time.Now()))
	repo := NewDetectionRepository(db)

	if err := repo.InsertCounts("job-1", map[string]int{"Drone": 7, "Helicopter": 2}); err != nil {
		t.Fatalf("InsertCounts failed: %v", err)
	}

	counts, err := repo.GetCountsByJobID("job-1")
	if err != nil {
		t.Fatalf("GetCountsByJobID failed: %v", err)
	}
	if counts["Drone"] != 7 || counts["Helicopter"] != 2 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestDetectionRepository_InsertCounts_Empty(t *testing.T) {
	repo := NewDetectionRepository(setupTestDB(t))

	if err := repo.InsertCounts("job-1", nil); err != nil {
		t.Errorf("Expected no error for empty counts, got %v", err)
	}
}
