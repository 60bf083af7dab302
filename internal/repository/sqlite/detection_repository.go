package sqlite

import "fmt"

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertCounts stores the per-label totals of a job in a single transaction.
func (r *DetectionRepository) InsertCounts(jobID string, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO video_detections (job_id, label, count)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for label, count := range counts {
		if _, err := stmt.Exec(jobID, label, count); err != nil {
			return fmt.Errorf("failed to insert detection count: %w", err)
		}
	}

	return tx.Commit()
}

// GetCountsByJobID returns the per-label totals recorded for a job.
func (r *DetectionRepository) GetCountsByJobID(jobID string) (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT label, SUM(count) FROM video_detections
		WHERE job_id = ? GROUP BY label
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		counts[label] = count
	}

	return counts, rows.Err()
}
