package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/classmind/recall/internal/jobs"
	"github.com/classmind/recall/internal/types"
)

// BackendMode selects between queued and direct execution. It is injected
// at construction so the choice is explicit rather than global state.
type BackendMode string

const (
	// BackendQueued defers summarization to the job backend.
	BackendQueued BackendMode = "queued"
	// BackendDirect summarizes and persists on the caller's request.
	BackendDirect BackendMode = "direct"
)

// Outcome is the terminal state of one dispatch.
type Outcome string

const (
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeQueued    Outcome = "queued"
	OutcomeProcessed Outcome = "processed"
)

// highPriorityThreshold is the message count above which a session is
// queued at high priority; long sessions are the most valuable to
// summarize promptly.
const highPriorityThreshold = 20

// DispatchResult is the acknowledgement returned to the caller. Record is
// set for duplicate and processed outcomes, JobID for queued ones.
type DispatchResult struct {
	Outcome Outcome             `json:"outcome"`
	JobID   string              `json:"job_id,omitempty"`
	Record  *types.MemoryRecord `json:"record,omitempty"`
}

// Dispatcher is the orchestration entry point for saves.
type Dispatcher struct {
	mode       BackendMode
	guard      *DedupGuard
	processor  *Processor
	backend    jobs.Backend
	authorizer Authorizer
	clock      func() time.Time
}

// NewDispatcher wires the pipeline. A queued mode without a backend falls
// back to direct execution.
func NewDispatcher(mode BackendMode, guard *DedupGuard, processor *Processor, backend jobs.Backend, authorizer Authorizer) *Dispatcher {
	if mode == BackendQueued && backend == nil {
		slog.Warn("queued backend mode requested without a job backend, falling back to direct execution")
		mode = BackendDirect
	}
	return &Dispatcher{
		mode:       mode,
		guard:      guard,
		processor:  processor,
		backend:    backend,
		authorizer: authorizer,
		clock:      time.Now,
	}
}

// Dispatch validates and authorizes the request, consults the dedup guard,
// then either enqueues a job or processes the save inline. It never blocks
// on job completion.
func (d *Dispatcher) Dispatch(ctx context.Context, actor Actor, req types.SaveRequest) (*DispatchResult, error) {
	if err := validateSaveRequest(req, d.clock()); err != nil {
		return nil, err
	}
	if d.authorizer != nil {
		if err := d.authorizer.AuthorizeSave(ctx, actor, req); err != nil {
			return nil, err
		}
	}

	existing, err := d.guard.ShouldSkip(ctx, req.StudentID, req.ChatbotID, req.RoomID, len(req.Messages))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Info("duplicate save skipped",
			"student_id", req.StudentID, "chatbot_id", req.ChatbotID, "room_id", req.RoomID,
			"existing_id", existing.ID)
		return &DispatchResult{Outcome: OutcomeDuplicate, Record: existing}, nil
	}

	if d.mode == BackendQueued {
		payload, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("failed to encode job payload: %w", err)
		}
		priority := jobs.PriorityNormal
		if len(req.Messages) > highPriorityThreshold {
			priority = jobs.PriorityHigh
		}
		jobID, err := d.backend.Enqueue(ctx, payload, priority)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue save: %w", err)
		}
		slog.Info("save queued", "student_id", req.StudentID, "job_id", jobID, "priority", priority)
		return &DispatchResult{Outcome: OutcomeQueued, JobID: jobID}, nil
	}

	rec, err := d.processor.Process(ctx, req)
	if err != nil {
		return nil, err
	}
	return &DispatchResult{Outcome: OutcomeProcessed, Record: rec}, nil
}

func validateSaveRequest(req types.SaveRequest, now time.Time) error {
	if req.StudentID == "" || req.ChatbotID == "" || req.RoomID == "" {
		return ErrMissingSubject
	}
	if len(req.Messages) == 0 {
		return ErrEmptyTranscript
	}
	if req.SessionStartTime.IsZero() || req.SessionStartTime.After(now) {
		return ErrInvalidStartTime
	}
	return nil
}

// NewJobHandler adapts the Processor into the job backend's handler
// contract; workers therefore share the direct path's execution body.
func NewJobHandler(processor *Processor) jobs.Handler {
	return func(ctx context.Context, job *jobs.Job) ([]byte, error) {
		var req types.SaveRequest
		if err := json.Unmarshal(job.Payload, &req); err != nil {
			return nil, fmt.Errorf("failed to decode job payload: %w", err)
		}
		rec, err := processor.Process(ctx, req)
		if err != nil {
			return nil, err
		}
		result, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode job result: %w", err)
		}
		return result, nil
	}
}
