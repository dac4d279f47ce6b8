package jobs

import (
	"context"

	"go.uber.org/zap"

	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/repository"
)

// Ledger is the single source of truth for asynchronous operations. Submit
// returns immediately with a PENDING job; the outcome is only ever
// observable by reading the job back.
type Ledger struct {
	repo   repository.JobRepository
	logger *zap.Logger
}

func NewLedger(repo repository.JobRepository, logger *zap.Logger) *Ledger {
	return &Ledger{repo: repo, logger: logger}
}

// Submit records a new PENDING job. entityID may carry the target entity for
// jobs that mutate an existing one (update_project, generate_answers).
func (l *Ledger) Submit(ctx context.Context, jobType models.JobType, entityID *string) (*models.Job, error) {
	job, err := l.repo.Create(ctx, jobType, entityID)
	if err != nil {
		return nil, err
	}
	l.logger.Info("job submitted",
		zap.Int64("job_id", job.ID),
		zap.String("type", string(job.Type)))
	return job, nil
}

// Get returns the job's current state, or (nil, nil) for unknown ids so
// callers can distinguish "never existed" from a lookup failure. Terminal
// states are stable: once COMPLETED or FAILED, every subsequent Get returns
// the same record.
func (l *Ledger) Get(ctx context.Context, id int64) (*models.Job, error) {
	return l.repo.GetByID(ctx, id)
}
