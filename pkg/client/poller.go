package client

import (
	"context"
	"errors"
	"time"

	"questionnaire-agent/internal/models"
)

// DefaultPollInterval matches the cadence reviewers see in the UI.
const DefaultPollInterval = 2 * time.Second

// JobGetter is the one call the poller needs; *Client satisfies it.
type JobGetter interface {
	GetJob(ctx context.Context, id int64) (*models.Job, error)
}

// Poller watches one job until it settles. Transient fetch failures keep the
// loop alive; cancelling the context stops it immediately. The terminal job
// is delivered exactly once, as the return value.
type Poller struct {
	client   JobGetter
	interval time.Duration
}

func NewPoller(client JobGetter) *Poller {
	return &Poller{client: client, interval: DefaultPollInterval}
}

// WithInterval overrides the poll cadence.
func (p *Poller) WithInterval(d time.Duration) *Poller {
	p.interval = d
	return p
}

// Poll blocks until the job reaches COMPLETED or FAILED and returns it. A
// FAILED job is not an error here; the caller reads its ErrorMessage. Poll
// returns an error only when the job id is unknown or the context ends.
// Cancelling detaches the poller; the job itself keeps running server-side
// and stays queryable by id.
func (p *Poller) Poll(ctx context.Context, jobID int64) (*models.Job, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		job, err := p.client.GetJob(ctx, jobID)
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, err
		case err != nil:
			// transient failure, keep polling
		case job.Status.Terminal():
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
