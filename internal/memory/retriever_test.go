package memory

import (
	"context"
	"testing"
	"time"

	"github.com/classmind/recall/internal/types"
)

func TestRetrieverReturnsEmptyResultWithoutHistory(t *testing.T) {
	retriever := NewRetriever(&fakeStore{}, &fakeProfiles{}, nil, 0)

	result, err := retriever.Memories(context.Background(), "s1", "c1", 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Memories == nil || len(result.Memories) != 0 {
		t.Fatalf("expected empty memories slice, got %#v", result.Memories)
	}
	if result.Profile != nil {
		t.Fatalf("expected nil profile, got %+v", result.Profile)
	}
}

func TestRetrieverMergesMemoriesAndProfile(t *testing.T) {
	records := []types.MemoryRecord{
		{ID: 2, Summary: "newest", CreatedAt: time.Now()},
		{ID: 1, Summary: "older", CreatedAt: time.Now().Add(-time.Hour)},
	}
	profile := &types.LearningProfile{StudentID: "s1", ChatbotID: "c1", ProgressNotes: "on track"}
	store := &fakeStore{recent: records}
	retriever := NewRetriever(store, &fakeProfiles{profile: profile}, nil, 0)

	result, err := retriever.Memories(context.Background(), "s1", "c1", 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.Memories) != 2 || result.Memories[0].Summary != "newest" {
		t.Fatalf("expected newest-first memories, got %#v", result.Memories)
	}
	if result.Profile == nil || result.Profile.ProgressNotes != "on track" {
		t.Fatalf("expected profile in result, got %+v", result.Profile)
	}
	if len(store.recentCalls) != 1 || store.recentCalls[0].limit != 2 {
		t.Fatalf("expected limit 2 passed to store, got %+v", store.recentCalls)
	}
}

func TestRetrieverDefaultsLimit(t *testing.T) {
	store := &fakeStore{}
	retriever := NewRetriever(store, &fakeProfiles{}, nil, 0)

	if _, err := retriever.Memories(context.Background(), "s1", "c1", 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(store.recentCalls) != 1 || store.recentCalls[0].limit != 5 {
		t.Fatalf("expected default limit 5, got %+v", store.recentCalls)
	}
}

func TestRetrieverSearchEmbedsQuery(t *testing.T) {
	store := &fakeStore{searchResult: []types.RetrievedMemory{{Content: "fractions recap"}}}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.9}}
	retriever := NewRetriever(store, &fakeProfiles{}, embedder, 0)

	results, err := retriever.Search(context.Background(), "s1", "c1", "what did we cover on fractions", 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 1 || results[0].Content != "fractions recap" {
		t.Fatalf("unexpected search results: %#v", results)
	}
	if len(store.searchCalls) != 1 {
		t.Fatalf("expected one search call, got %d", len(store.searchCalls))
	}
	call := store.searchCalls[0]
	if call.topK != defaultSearchTopK || len(call.embedding) != 2 {
		t.Fatalf("unexpected search call: %+v", call)
	}
	if len(embedder.inputs) != 1 {
		t.Fatalf("expected embedder to encode the query, got %v", embedder.inputs)
	}
}

func TestRetrieverSearchWithEmptyQueryIsNoop(t *testing.T) {
	retriever := NewRetriever(&fakeStore{}, &fakeProfiles{}, &fakeEmbedder{}, 0)

	results, err := retriever.Search(context.Background(), "s1", "c1", "", 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results for empty query, got %#v", results)
	}
}

func TestRetrieverSearchRequiresEmbedder(t *testing.T) {
	retriever := NewRetriever(&fakeStore{}, &fakeProfiles{}, nil, 0)

	if _, err := retriever.Search(context.Background(), "s1", "c1", "query", 3); err == nil {
		t.Fatalf("expected error without embedder")
	}
}

func TestCachedChatbotDirectoryCachesLookups(t *testing.T) {
	inner := &fakeDirectory{names: map[string]string{"c1": "MathBot"}}
	directory := NewCachedChatbotDirectory(inner, time.Minute)

	for i := 0; i < 3; i++ {
		name, err := directory.DisplayName(context.Background(), "c1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if name != "MathBot" {
			t.Fatalf("expected MathBot, got %q", name)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected one underlying lookup, got %d", inner.calls)
	}
}
