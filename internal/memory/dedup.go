package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/classmind/recall/internal/types"
)

const (
	// dedupLookupWindow bounds how far back the guard looks at all.
	dedupLookupWindow = 15 * time.Minute
	// dedupDuplicateWindow is the tighter window inside which a
	// near-identical save counts as a duplicate. A session auto-save and
	// its final save can legitimately land a few minutes apart with a
	// slightly longer transcript, so only this window plus a small
	// message-count delta is treated as accidental duplication.
	dedupDuplicateWindow = 10 * time.Minute
	// dedupMessageCountDelta is the exclusive bound on the message-count
	// difference of a duplicate.
	dedupMessageCountDelta = 2
)

// DedupGuard is the sole idempotency mechanism of the pipeline: it checks
// candidate saves against already-persisted records. No storage-level
// unique constraint is assumed.
type DedupGuard struct {
	store MemoryStore
	clock func() time.Time
}

// NewDedupGuard returns a guard over the store.
func NewDedupGuard(store MemoryStore) *DedupGuard {
	return &DedupGuard{store: store, clock: time.Now}
}

// ShouldSkip returns the recently persisted record the candidate would
// duplicate, or nil when the candidate should be accepted.
func (g *DedupGuard) ShouldSkip(ctx context.Context, studentID, chatbotID, roomID string, messageCount int) (*types.MemoryRecord, error) {
	now := g.clock()
	existing, err := g.store.Latest(ctx, studentID, chatbotID, roomID, now.Add(-dedupLookupWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to check for recent memory: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	delta := existing.MessageCount - messageCount
	if delta < 0 {
		delta = -delta
	}
	if now.Sub(existing.CreatedAt) < dedupDuplicateWindow && delta < dedupMessageCountDelta {
		return existing, nil
	}
	return nil, nil
}
