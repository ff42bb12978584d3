package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/classmind/recall/internal/types"
)

const (
	defaultMemoryLimit     = 5
	defaultSearchTopK      = 5
	defaultSearchThreshold = 0.7
)

// RetrievalResult merges a student's recent memories with their learning
// profile, e.g. to seed a new chat session with prior context.
type RetrievalResult struct {
	Memories []types.MemoryRecord   `json:"memories"`
	Profile  *types.LearningProfile `json:"profile"`
}

// Retriever is the read path over memories and profiles.
type Retriever struct {
	memories  MemoryStore
	profiles  ProfileStore
	embedder  Embedder
	limit     int
	topK      int
	threshold float64
}

// NewRetriever creates a Retriever. embedder may be nil, which disables
// semantic search.
func NewRetriever(memories MemoryStore, profiles ProfileStore, embedder Embedder, limit int) *Retriever {
	if limit <= 0 {
		limit = defaultMemoryLimit
	}
	return &Retriever{
		memories:  memories,
		profiles:  profiles,
		embedder:  embedder,
		limit:     limit,
		topK:      defaultSearchTopK,
		threshold: defaultSearchThreshold,
	}
}

// Memories returns up to limit records newest first plus the profile. The
// two lookups are independent and run concurrently. No history and no
// profile are both normal outcomes.
func (r *Retriever) Memories(ctx context.Context, studentID, chatbotID string, limit int) (*RetrievalResult, error) {
	if limit <= 0 {
		limit = r.limit
	}

	var (
		wg      sync.WaitGroup
		records []types.MemoryRecord
		profile *types.LearningProfile
		recErr  error
		profErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		records, recErr = r.memories.Recent(ctx, studentID, chatbotID, limit)
	}()
	go func() {
		defer wg.Done()
		profile, profErr = r.profiles.Get(ctx, studentID, chatbotID)
	}()
	wg.Wait()

	if recErr != nil {
		return nil, recErr
	}
	if profErr != nil {
		return nil, profErr
	}
	if records == nil {
		records = []types.MemoryRecord{}
	}
	return &RetrievalResult{Memories: records, Profile: profile}, nil
}

// Search returns top-k memories semantically similar to the query.
func (r *Retriever) Search(ctx context.Context, studentID, chatbotID, query string, topK int) ([]types.RetrievedMemory, error) {
	if query == "" {
		return nil, nil
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("retriever has no embedder configured")
	}
	if topK <= 0 {
		topK = r.topK
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return r.memories.SearchSimilar(ctx, studentID, chatbotID, vec, topK, r.threshold)
}
