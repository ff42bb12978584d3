package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// Status is the backend-independent view callers poll. Fields a backend
// does not populate are null rather than omitted, so the shape is stable.
type Status struct {
	ID            string          `json:"id"`
	State         State           `json:"state"`
	Progress      int             `json:"progress"`
	Result        json.RawMessage `json:"result"`
	FailureReason *string         `json:"failure_reason"`
	CreatedAt     *time.Time      `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at"`
	FinishedAt    *time.Time      `json:"finished_at"`
}

// StatusService normalizes jobs into the Status shape. It never mutates
// job state.
type StatusService struct {
	backend Backend
}

// NewStatusService returns a StatusService over the backend.
func NewStatusService(backend Backend) *StatusService {
	return &StatusService{backend: backend}
}

// Status returns the normalized view of one job, or ErrNotFound.
func (s *StatusService) Status(ctx context.Context, id string) (*Status, error) {
	job, err := s.backend.Job(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &Status{
		ID:          job.ID,
		State:       job.State,
		Progress:    job.Progress,
		Result:      job.Result,
		ProcessedAt: job.ProcessedAt,
		FinishedAt:  job.FinishedAt,
	}
	if job.FailureReason != "" {
		reason := job.FailureReason
		status.FailureReason = &reason
	}
	if !job.CreatedAt.IsZero() {
		createdAt := job.CreatedAt
		status.CreatedAt = &createdAt
	}
	return status, nil
}
