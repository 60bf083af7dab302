package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"aerodetect/internal/model"
)

// VideoJobRepository implements repository.VideoJobRepository for SQLite.
type VideoJobRepository struct {
	db *DB
}

// NewVideoJobRepository creates a new SQLite video job repository.
func NewVideoJobRepository(db *DB) *VideoJobRepository {
	return &VideoJobRepository{db: db}
}

const videoJobColumns = `id, storage_key, original_name, input_path, output_path, output_url,
	status, frames, fps, width, height, error, created_at, finished_at`

// Insert adds a new job record to the database.
func (r *VideoJobRepository) Insert(job *model.VideoJob) error {
	r.db.Lock()
	defer r.db.Unlock()

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	_, err := r.db.Conn().Exec(`
		INSERT INTO video_jobs (id, storage_key, original_name, input_path, output_path, output_url, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.StorageKey, job.OriginalName, job.InputPath, job.OutputPath, job.OutputURL, job.Status, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert video job: %w", err)
	}

	return nil
}

// MarkCompleted stores the output metadata and flips the job to completed.
func (r *VideoJobRepository) MarkCompleted(id string, frames int, fps float64, width, height int) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		UPDATE video_jobs
		SET status = ?, frames = ?, fps = ?, width = ?, height = ?, finished_at = ?
		WHERE id = ?
	`, model.VideoStatusCompleted, frames, fps, width, height, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete video job: %w", err)
	}
	return nil
}

// MarkFailed records the failure message and flips the job to failed.
func (r *VideoJobRepository) MarkFailed(id string, reason string) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		UPDATE video_jobs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, model.VideoStatusFailed, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark video job as failed: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its ID. A missing job yields (nil, nil).
func (r *VideoJobRepository) GetByID(id string) (*model.VideoJob, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+videoJobColumns+` FROM video_jobs WHERE id = ?`, id)
	job, err := scanVideoJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video job: %w", err)
	}
	return job, nil
}

// GetAll returns jobs newest first.
func (r *VideoJobRepository) GetAll(limit, offset int) ([]model.VideoJob, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT ` + videoJobColumns + ` FROM video_jobs ORDER BY created_at DESC`
	args := []interface{}{}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)

		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query video jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.VideoJob
	for rows.Next() {
		job, err := scanVideoJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, rows.Err()
}

// GetTotalCount returns the number of recorded jobs.
func (r *VideoJobRepository) GetTotalCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM video_jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count video jobs: %w", err)
	}
	return count, nil
}

// CountByStorageKey returns how many jobs reference the same stored upload.
func (r *VideoJobRepository) CountByStorageKey(key string) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM video_jobs WHERE storage_key = ?`, key).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count video jobs by key: %w", err)
	}
	return count, nil
}

// Delete removes a job and, through the foreign key, its detection tallies.
func (r *VideoJobRepository) Delete(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM video_jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete video job: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideoJob(row rowScanner) (*model.VideoJob, error) {
	var job model.VideoJob
	var finishedAt sql.NullTime

	err := row.Scan(&job.ID, &job.StorageKey, &job.OriginalName, &job.InputPath, &job.OutputPath, &job.OutputURL,
		&job.Status, &job.Frames, &job.FPS, &job.Width, &job.Height, &job.Error, &job.CreatedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	return &job, nil
}
