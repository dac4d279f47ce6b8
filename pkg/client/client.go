// Package client is a small Go client for the questionnaire backend's
// asynchronous job protocol: submit an operation over HTTP, then poll the
// returned job id until it settles.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"questionnaire-agent/internal/models"
)

// ErrNotFound means the job id was never issued (or has expired), as opposed
// to a job that exists but has not finished.
var ErrNotFound = errors.New("request not found")

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetJob fetches a job's current state. Terminal states are stable: once a
// job reports COMPLETED or FAILED, every later call returns the same record.
func (c *Client) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	url := fmt.Sprintf("%s/api/requests/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var job models.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}
