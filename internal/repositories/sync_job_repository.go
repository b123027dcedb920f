package repositories

import (
	"database/sql"
	"sync"

	"github.com/gitmesh-labs/steward/internal/models"
)

// SyncJobRepository handles database operations for sync jobs
type SyncJobRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSyncJobRepository creates a new SyncJobRepository
func NewSyncJobRepository(db *sql.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

// Create creates a new sync job
func (r *SyncJobRepository) Create(job *models.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO sync_jobs (id, trigger_type, status, error_message, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		job.ID,
		job.Trigger,
		job.Status,
		job.ErrorMessage,
		job.StartedAt,
		job.CompletedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// Update updates a sync job
func (r *SyncJobRepository) Update(job *models.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE sync_jobs
		SET trigger_type = ?, status = ?, error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		job.Trigger,
		job.Status,
		job.ErrorMessage,
		job.StartedAt,
		job.CompletedAt,
		job.UpdatedAt,
		job.ID,
	)
	return err
}

// GetNextPending retrieves the oldest pending sync job, or nil
func (r *SyncJobRepository) GetNextPending() (*models.SyncJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, trigger_type, status, error_message, started_at, completed_at, created_at, updated_at
		FROM sync_jobs
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT 1
	`

	job := &models.SyncJob{}
	err := r.db.QueryRow(query, models.SyncJobStatusPending).Scan(
		&job.ID,
		&job.Trigger,
		&job.Status,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.CompletedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetRecent retrieves the most recent sync jobs, newest first
func (r *SyncJobRepository) GetRecent(limit int) ([]*models.SyncJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `
		SELECT id, trigger_type, status, error_message, started_at, completed_at, created_at, updated_at
		FROM sync_jobs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.SyncJob
	for rows.Next() {
		job := &models.SyncJob{}
		if err := rows.Scan(
			&job.ID,
			&job.Trigger,
			&job.Status,
			&job.ErrorMessage,
			&job.StartedAt,
			&job.CompletedAt,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// HasActive reports whether any sync job is pending or in progress
func (r *SyncJobRepository) HasActive() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT COUNT(*) FROM sync_jobs WHERE status IN (?, ?)`

	var count int
	err := r.db.QueryRow(query, models.SyncJobStatusPending, models.SyncJobStatusInProgress).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
