package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/classmind/recall/internal/jobs"
	"github.com/classmind/recall/internal/types"
)

type recentCall struct {
	studentID string
	chatbotID string
	limit     int
}

type searchCall struct {
	studentID string
	chatbotID string
	embedding []float32
	topK      int
	threshold float64
}

type fakeStore struct {
	added     []*types.MemoryRecord
	addErr    error
	latest    *types.MemoryRecord
	latestErr error

	recent      []types.MemoryRecord
	recentErr   error
	recentCalls []recentCall

	searchResult []types.RetrievedMemory
	searchCalls  []searchCall

	nextID int
}

func (s *fakeStore) AddMemory(_ context.Context, rec *types.MemoryRecord) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.nextID++
	rec.ID = s.nextID
	s.added = append(s.added, rec)
	return nil
}

func (s *fakeStore) Latest(context.Context, string, string, string, time.Time) (*types.MemoryRecord, error) {
	return s.latest, s.latestErr
}

func (s *fakeStore) Recent(_ context.Context, studentID, chatbotID string, limit int) ([]types.MemoryRecord, error) {
	s.recentCalls = append(s.recentCalls, recentCall{studentID: studentID, chatbotID: chatbotID, limit: limit})
	return s.recent, s.recentErr
}

func (s *fakeStore) SearchSimilar(_ context.Context, studentID, chatbotID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedMemory, error) {
	s.searchCalls = append(s.searchCalls, searchCall{studentID: studentID, chatbotID: chatbotID, embedding: embedding, topK: topK, threshold: threshold})
	return s.searchResult, nil
}

type fakeProfiles struct {
	profile *types.LearningProfile
	err     error
}

func (p *fakeProfiles) Get(context.Context, string, string) (*types.LearningProfile, error) {
	return p.profile, p.err
}

type fakeSummarizer struct {
	result types.SummaryResult
	calls  []string
}

func (s *fakeSummarizer) Summarize(_ context.Context, messages []types.Message, chatbotName string) types.SummaryResult {
	s.calls = append(s.calls, chatbotName)
	return s.result
}

type fakeEmbedder struct {
	vector []float32
	err    error
	inputs []string
}

func (e *fakeEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	e.inputs = append(e.inputs, text)
	return e.vector, e.err
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.inputs = append(e.inputs, text)
	return e.vector, e.err
}

type fakeDirectory struct {
	names map[string]string
	err   error
	calls int
}

func (d *fakeDirectory) DisplayName(_ context.Context, chatbotID string) (string, error) {
	d.calls++
	if d.err != nil {
		return "", d.err
	}
	return d.names[chatbotID], nil
}

type fakeRooms struct {
	owners map[string]string
}

func (r *fakeRooms) OwnerID(_ context.Context, roomID string) (string, error) {
	return r.owners[roomID], nil
}

type enqueueCall struct {
	payload  []byte
	priority jobs.Priority
}

type fakeBackend struct {
	enqueued   []enqueueCall
	enqueueErr error
	jobsByID   map[string]*jobs.Job
}

func (b *fakeBackend) Enqueue(_ context.Context, payload []byte, priority jobs.Priority) (string, error) {
	if b.enqueueErr != nil {
		return "", b.enqueueErr
	}
	b.enqueued = append(b.enqueued, enqueueCall{payload: payload, priority: priority})
	return fmt.Sprintf("job-%d", len(b.enqueued)), nil
}

func (b *fakeBackend) Job(_ context.Context, id string) (*jobs.Job, error) {
	job, ok := b.jobsByID[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return job, nil
}

func makeMessages(n int) []types.Message {
	messages := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAgent
		}
		messages = append(messages, types.Message{Role: role, Content: fmt.Sprintf("turn %d", i+1)})
	}
	return messages
}

var (
	_ MemoryStore      = (*fakeStore)(nil)
	_ ProfileStore     = (*fakeProfiles)(nil)
	_ Summarizer       = (*fakeSummarizer)(nil)
	_ Embedder         = (*fakeEmbedder)(nil)
	_ ChatbotDirectory = (*fakeDirectory)(nil)
	_ RoomDirectory    = (*fakeRooms)(nil)
	_ jobs.Backend     = (*fakeBackend)(nil)
)
