package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/classmind/recall/internal/types"
)

func testMessages() []types.Message {
	return []types.Message{
		{Role: types.RoleUser, Content: "What is a fraction?"},
		{Role: types.RoleAgent, Content: "A fraction represents a part of a whole."},
		{Role: types.RoleUser, Content: "So 1/2 is half of something?"},
	}
}

func completionBody(content string) string {
	resp := map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("test-key", srv.URL+"/", "test-model", WithTimeout(500*time.Millisecond))
}

func TestSummarizeParsesStructuredOutput(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(`{
			"summary": "Reviewed fractions and their meaning.",
			"keyTopics": ["fractions"],
			"learningInsights": {"understood": ["parts of a whole"], "struggling": [], "progress": "Solid start"},
			"nextSteps": "Practice comparing fractions."
		}`))
	})

	result := client.Summarize(context.Background(), testMessages(), "MathBot")

	if result.Summary != "Reviewed fractions and their meaning." {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
	if len(result.KeyTopics) != 1 || result.KeyTopics[0] != "fractions" {
		t.Fatalf("unexpected key topics: %#v", result.KeyTopics)
	}
	if len(result.LearningInsights.Understood) != 1 {
		t.Fatalf("unexpected insights: %#v", result.LearningInsights)
	}
	if result.NextSteps != "Practice comparing fractions." {
		t.Fatalf("unexpected next steps: %q", result.NextSteps)
	}

	if gotBody["model"] != "test-model" {
		t.Fatalf("expected model test-model, got %v", gotBody["model"])
	}
	if temp, ok := gotBody["temperature"].(float64); !ok || temp != 0.3 {
		t.Fatalf("expected temperature 0.3, got %v", gotBody["temperature"])
	}
	format, ok := gotBody["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", gotBody["response_format"])
	}
	messages, ok := gotBody["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system+user messages, got %v", gotBody["messages"])
	}
	user := messages[1].(map[string]any)
	if !strings.Contains(user["content"].(string), "MathBot: A fraction represents a part of a whole.") {
		t.Fatalf("transcript missing chatbot turn: %v", user["content"])
	}
}

func TestSummarizeFallsBackOnServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})

	result := client.Summarize(context.Background(), testMessages(), "MathBot")
	assertFallback(t, result)
}

func TestSummarizeFallsBackOnNonJSONContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("I could not produce a summary, sorry!"))
	})

	result := client.Summarize(context.Background(), testMessages(), "MathBot")
	assertFallback(t, result)
}

func TestSummarizeFallsBackOnSchemaViolation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// keyTopics must be an array of strings.
		fmt.Fprint(w, completionBody(`{"summary": "ok", "keyTopics": "fractions"}`))
	})

	result := client.Summarize(context.Background(), testMessages(), "MathBot")
	assertFallback(t, result)
}

func TestSummarizeFallsBackOnTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(`{"summary": "too late"}`))
	})

	result := client.Summarize(context.Background(), testMessages(), "MathBot")
	assertFallback(t, result)
}

func assertFallback(t *testing.T, result types.SummaryResult) {
	t.Helper()
	if result.Summary != "Student had a conversation with the chatbot." {
		t.Fatalf("expected fallback summary, got %q", result.Summary)
	}
	if len(result.KeyTopics) != 0 {
		t.Fatalf("expected empty key topics, got %#v", result.KeyTopics)
	}
	if result.LearningInsights.Progress != "Unable to assess" {
		t.Fatalf("expected fallback progress, got %q", result.LearningInsights.Progress)
	}
	if result.NextSteps == "" {
		t.Fatalf("expected fallback next steps")
	}
}

func TestRenderTranscriptLabelsSpeakers(t *testing.T) {
	got := RenderTranscript(testMessages(), "MathBot")
	want := "Student: What is a fraction?\n\nMathBot: A fraction represents a part of a whole.\n\nStudent: So 1/2 is half of something?"
	if got != want {
		t.Fatalf("unexpected transcript:\n%s", got)
	}
}

func TestRenderTranscriptDefaultsChatbotName(t *testing.T) {
	got := RenderTranscript([]types.Message{{Role: types.RoleAgent, Content: "hello"}}, "")
	if got != "Tutor: hello" {
		t.Fatalf("expected default label, got %q", got)
	}
}

func TestParseSummaryJSONExtractsEmbeddedObject(t *testing.T) {
	raw := "Here you go:\n```json\n{\"summary\": \"wrapped\"}\n```"
	result, err := parseSummaryJSON(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Summary != "wrapped" {
		t.Fatalf("expected wrapped summary, got %q", result.Summary)
	}
	if result.KeyTopics == nil || result.LearningInsights.Understood == nil {
		t.Fatalf("expected empty slices to be normalized, got %#v", result)
	}
}

func TestParseSummaryJSONRejectsEmptySummary(t *testing.T) {
	if _, err := parseSummaryJSON(`{"summary": "  "}`); err == nil {
		t.Fatalf("expected error for blank summary")
	}
}
