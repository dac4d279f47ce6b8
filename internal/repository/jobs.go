package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"questionnaire-agent/internal/models"
)

// JobRepository persists job records. Terminal writes are status-guarded so
// a job can never leave COMPLETED or FAILED, whatever the callers do.
type JobRepository interface {
	Create(ctx context.Context, jobType models.JobType, entityID *string) (*models.Job, error)
	GetByID(ctx context.Context, id int64) (*models.Job, error)
	MarkRunning(ctx context.Context, id int64) (bool, error)
	MarkCompleted(ctx context.Context, id int64, entityID, resultPayload string) error
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
	FailStuckRunning(ctx context.Context, olderThan time.Duration, message string) (int64, error)
}

type jobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, jobType models.JobType, entityID *string) (*models.Job, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (type, status, entity_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		jobType, models.JobPending, entityID, now, now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Job{
		ID:        id,
		Type:      jobType,
		Status:    models.JobPending,
		EntityID:  entityID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *jobRepository) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job,
		`SELECT id, type, status, entity_id, result_payload, error_message, created_at, updated_at
		 FROM jobs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkRunning transitions PENDING -> RUNNING. Returns false when the job was
// not PENDING (already picked up, finished, or unknown).
func (r *jobRepository) MarkRunning(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.JobRunning, time.Now().UTC(), id, models.JobPending,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *jobRepository) MarkCompleted(ctx context.Context, id int64, entityID, resultPayload string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, entity_id = ?, result_payload = ?, error_message = NULL, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		models.JobCompleted, entityID, resultPayload, time.Now().UTC(),
		id, models.JobPending, models.JobRunning,
	)
	return err
}

func (r *jobRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		models.JobFailed, errorMessage, time.Now().UTC(),
		id, models.JobPending, models.JobRunning,
	)
	return err
}

// FailStuckRunning fails every RUNNING job whose last transition is older
// than the given age. Used by the reconciliation sweep and at startup to
// clean up jobs orphaned by a crash.
func (r *jobRepository) FailStuckRunning(ctx context.Context, olderThan time.Duration, message string) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
		 WHERE status = ? AND updated_at < ?`,
		models.JobFailed, message, time.Now().UTC(), models.JobRunning, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
