package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultJobTTL = 24 * time.Hour

// RedisBackend stores jobs as hashes and queues ids on per-priority lists.
type RedisBackend struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
	clock     func() time.Time
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithNamespace prefixes all keys, isolating multiple deployments on one
// redis instance.
func WithNamespace(ns string) RedisOption {
	return func(b *RedisBackend) {
		if ns != "" {
			b.namespace = ns
		}
	}
}

// WithJobTTL bounds how long finished and unclaimed jobs stay queryable.
func WithJobTTL(ttl time.Duration) RedisOption {
	return func(b *RedisBackend) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

func withClock(clock func() time.Time) RedisOption {
	return func(b *RedisBackend) {
		b.clock = clock
	}
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client redis.UniversalClient, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{
		client:    client,
		namespace: "recall",
		ttl:       defaultJobTTL,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBackend) jobKey(id string) string {
	return fmt.Sprintf("%s:job:%s", b.namespace, id)
}

func (b *RedisBackend) queueKey(priority Priority) string {
	return fmt.Sprintf("%s:queue:%s", b.namespace, priority)
}

// Enqueue stores the job hash and pushes its id onto the priority list.
func (b *RedisBackend) Enqueue(ctx context.Context, payload []byte, priority Priority) (string, error) {
	switch priority {
	case PriorityHigh, PriorityNormal, PriorityLow:
	default:
		priority = PriorityNormal
	}

	id := uuid.NewString()
	now := b.clock()

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, b.jobKey(id), map[string]any{
		"payload":    string(payload),
		"priority":   string(priority),
		"state":      string(StateQueued),
		"progress":   0,
		"created_at": now.Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, b.jobKey(id), b.ttl)
	pipe.LPush(ctx, b.queueKey(priority), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return id, nil
}

// Job loads a job by id. Unknown and expired ids map to ErrNotFound.
func (b *RedisBackend) Job(ctx context.Context, id string) (*Job, error) {
	vals, err := b.client.HGetAll(ctx, b.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	return jobFromHash(id, vals), nil
}

// dequeue blocks up to timeout for the next id, draining high before
// normal before low. Returns "" when the queues stayed empty.
func (b *RedisBackend) dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := b.client.BRPop(ctx, timeout,
		b.queueKey(PriorityHigh),
		b.queueKey(PriorityNormal),
		b.queueKey(PriorityLow),
	).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to pop job: %w", err)
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

func (b *RedisBackend) markActive(ctx context.Context, id string) error {
	err := b.client.HSet(ctx, b.jobKey(id), map[string]any{
		"state":        string(StateActive),
		"processed_at": b.clock().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to mark job %s active: %w", id, err)
	}
	return nil
}

func (b *RedisBackend) complete(ctx context.Context, id string, result []byte) error {
	err := b.client.HSet(ctx, b.jobKey(id), map[string]any{
		"state":       string(StateCompleted),
		"progress":    100,
		"result":      string(result),
		"finished_at": b.clock().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", id, err)
	}
	return nil
}

func (b *RedisBackend) fail(ctx context.Context, id string, reason string) error {
	err := b.client.HSet(ctx, b.jobKey(id), map[string]any{
		"state":          string(StateFailed),
		"failure_reason": reason,
		"finished_at":    b.clock().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", id, err)
	}
	return nil
}

func jobFromHash(id string, vals map[string]string) *Job {
	job := &Job{
		ID:            id,
		Payload:       []byte(vals["payload"]),
		Priority:      Priority(vals["priority"]),
		State:         State(vals["state"]),
		FailureReason: vals["failure_reason"],
	}
	if v := vals["progress"]; v != "" {
		job.Progress, _ = strconv.Atoi(v)
	}
	if v := vals["result"]; v != "" {
		job.Result = json.RawMessage(v)
	}
	if t, ok := parseTime(vals["created_at"]); ok {
		job.CreatedAt = t
	}
	if t, ok := parseTime(vals["processed_at"]); ok {
		job.ProcessedAt = &t
	}
	if t, ok := parseTime(vals["finished_at"]); ok {
		job.FinishedAt = &t
	}
	return job
}

func parseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var _ Backend = (*RedisBackend)(nil)
