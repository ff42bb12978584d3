// Package jobs provides an abstract priority work queue for deferred
// summarization work, plus a normalized status view over it.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Priority orders jobs across queues.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// State is the lifecycle position of a job. Transitions happen exclusively
// inside the worker: queued -> active -> completed | failed.
type State string

const (
	StateQueued    State = "queued"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ErrNotFound is returned when a job id is unknown or has expired.
var ErrNotFound = errors.New("job not found")

// Job is one unit of deferred work.
type Job struct {
	ID            string
	Payload       []byte
	Priority      Priority
	State         State
	Progress      int
	Result        json.RawMessage
	FailureReason string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	FinishedAt    *time.Time
}

// Backend is the queue contract the dispatcher and the status facade are
// written against. Concrete backends perform any field mapping needed so
// every Job they return has the shape above.
type Backend interface {
	Enqueue(ctx context.Context, payload []byte, priority Priority) (string, error)
	Job(ctx context.Context, id string) (*Job, error)
}

// Handler executes one job and returns its serialized result.
type Handler func(ctx context.Context, job *Job) ([]byte, error)
