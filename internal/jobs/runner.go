package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/repository"
)

// Body is one job's unit of work. On success it returns the identifier of
// the entity the job produced or mutated, plus an opaque result payload.
type Body func(ctx context.Context) (entityID, resultPayload string, err error)

// Runner executes job bodies to completion and writes their terminal state
// into the ledger. A body's error never reaches the submitter; it is only
// observable as a FAILED job.
type Runner struct {
	repo    repository.JobRepository
	logger  *zap.Logger
	timeout time.Duration

	mu         sync.Mutex
	generating map[int64]int64 // project id -> in-flight generate_answers job id
	wg         sync.WaitGroup
}

func NewRunner(repo repository.JobRepository, timeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		repo:       repo,
		logger:     logger,
		timeout:    timeout,
		generating: make(map[int64]int64),
	}
}

// Run picks up a PENDING job and executes its body in a new goroutine.
// If the job is no longer PENDING (another runner took it, or it was
// reconciled away) the body is not executed.
func (r *Runner) Run(job *models.Job, body Body) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(job, body)
	}()
}

// terminalWriteTimeout bounds the ledger writes that record a job's outcome.
// They run on their own context: the body's deadline expiring is itself a
// failure the ledger must be able to record.
const terminalWriteTimeout = 10 * time.Second

func (r *Runner) execute(job *models.Job, body Body) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	picked, err := r.repo.MarkRunning(ctx, job.ID)
	if err != nil {
		r.logger.Error("failed to mark job running", zap.Int64("job_id", job.ID), zap.Error(err))
		return
	}
	if !picked {
		r.logger.Warn("job no longer pending, skipping", zap.Int64("job_id", job.ID))
		return
	}

	entityID, payload, err := body(ctx)

	writeCtx, done := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer done()

	if err != nil {
		if ferr := r.repo.MarkFailed(writeCtx, job.ID, err.Error()); ferr != nil {
			r.logger.Error("failed to record job failure", zap.Int64("job_id", job.ID), zap.Error(ferr))
		}
		jobsFinished.WithLabelValues(string(job.Type), string(models.JobFailed)).Inc()
		r.logger.Warn("job failed",
			zap.Int64("job_id", job.ID),
			zap.String("type", string(job.Type)),
			zap.Error(err))
		return
	}

	if cerr := r.repo.MarkCompleted(writeCtx, job.ID, entityID, payload); cerr != nil {
		r.logger.Error("failed to record job completion", zap.Int64("job_id", job.ID), zap.Error(cerr))
		return
	}
	jobsFinished.WithLabelValues(string(job.Type), string(models.JobCompleted)).Inc()
	r.logger.Info("job completed",
		zap.Int64("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("entity_id", entityID))
}

// RunGenerateAnswers enforces per-project exclusivity: at most one
// generate_answers job may run for a project at a time. A submission while
// one is in flight returns the existing job id instead of starting a second
// writer over the same answer set.
func (r *Runner) RunGenerateAnswers(ctx context.Context, ledger *Ledger, projectID int64, body Body) (*models.Job, error) {
	// the mutex is held across the ledger lookup and the submit so two
	// concurrent submissions can never both register a job for the project
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.generating[projectID]; ok {
		existing, err := ledger.Get(ctx, existingID)
		if err != nil {
			return nil, err
		}
		if existing != nil && !existing.Status.Terminal() {
			r.logger.Info("generation already in flight, returning existing job",
				zap.Int64("project_id", projectID),
				zap.Int64("job_id", existingID))
			return existing, nil
		}
		// reconciliation finished the job before its body deregistered
		delete(r.generating, projectID)
	}

	entityID := fmt.Sprintf("%d", projectID)
	job, err := ledger.Submit(ctx, models.JobTypeGenerateAnswers, &entityID)
	if err != nil {
		return nil, err
	}
	r.generating[projectID] = job.ID

	r.Run(job, func(ctx context.Context) (string, string, error) {
		defer func() {
			r.mu.Lock()
			// a stale entry may already have been replaced by a newer job
			if r.generating[projectID] == job.ID {
				delete(r.generating, projectID)
			}
			r.mu.Unlock()
		}()
		return body(ctx)
	})
	return job, nil
}

// Reconcile fails jobs stuck in RUNNING beyond the runner timeout. A job
// left RUNNING forever is a defect, not a valid terminal condition; this
// sweep is also run once at startup with a zero grace period to clean up
// jobs orphaned by a crash.
func (r *Runner) Reconcile(ctx context.Context, olderThan time.Duration) {
	n, err := r.repo.FailStuckRunning(ctx, olderThan, "job exceeded deadline and was reconciled to FAILED")
	if err != nil {
		r.logger.Error("job reconciliation failed", zap.Error(err))
		return
	}
	if n > 0 {
		jobsReconciled.Add(float64(n))
		r.logger.Warn("reconciled stuck jobs", zap.Int64("count", n))
	}
}

// Wait blocks until every in-flight job body has returned. Test helper and
// shutdown hook.
func (r *Runner) Wait() {
	r.wg.Wait()
}
