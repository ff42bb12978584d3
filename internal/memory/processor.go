package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/classmind/recall/internal/types"
)

// Processor executes one accepted save end to end: resolve the chatbot
// display name, summarize, embed, and persist. Both the direct path and
// the job workers run this same body, so a record looks the same whichever
// path produced it.
type Processor struct {
	store      MemoryStore
	summarizer Summarizer
	chatbots   ChatbotDirectory
	embedder   Embedder
	clock      func() time.Time
}

// NewProcessor builds a Processor. chatbots and embedder may be nil; both
// are best-effort enrichments.
func NewProcessor(store MemoryStore, summarizer Summarizer, chatbots ChatbotDirectory, embedder Embedder) *Processor {
	return &Processor{
		store:      store,
		summarizer: summarizer,
		chatbots:   chatbots,
		embedder:   embedder,
		clock:      time.Now,
	}
}

// Process summarizes the session and inserts its memory record. Only the
// store write can fail; summarization and embedding degrade silently.
func (p *Processor) Process(ctx context.Context, req types.SaveRequest) (*types.MemoryRecord, error) {
	chatbotName := ""
	if p.chatbots != nil {
		name, err := p.chatbots.DisplayName(ctx, req.ChatbotID)
		if err != nil {
			slog.Warn("failed to resolve chatbot display name", "chatbot_id", req.ChatbotID, "error", err.Error())
		} else {
			chatbotName = name
		}
	}

	result := p.summarizer.Summarize(ctx, req.Messages, chatbotName)

	now := p.clock()
	duration := int(now.Sub(req.SessionStartTime).Seconds())
	if duration < 0 {
		duration = 0
	}
	rec := &types.MemoryRecord{
		StudentID:              req.StudentID,
		ChatbotID:              req.ChatbotID,
		RoomID:                 req.RoomID,
		Summary:                result.Summary,
		KeyTopics:              result.KeyTopics,
		LearningInsights:       result.LearningInsights,
		NextSteps:              result.NextSteps,
		MessageCount:           len(req.Messages),
		SessionDurationSeconds: duration,
		CreatedAt:              now,
	}

	if p.embedder != nil {
		vec, err := p.embedder.EmbedDocument(ctx, embeddingText(result))
		if err != nil {
			slog.Warn("failed to embed memory, storing without vector", "error", err.Error())
		} else {
			rec.Embedding = vec
		}
	}

	if err := p.store.AddMemory(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist memory: %w", err)
	}
	return rec, nil
}

// embeddingText concatenates the high-value fields used for retrieval.
func embeddingText(result types.SummaryResult) string {
	var sb strings.Builder
	sb.WriteString(result.Summary)
	if len(result.KeyTopics) > 0 {
		sb.WriteString("\ntopics: ")
		sb.WriteString(strings.Join(result.KeyTopics, " ; "))
	}
	if result.NextSteps != "" {
		sb.WriteString("\nnext steps: ")
		sb.WriteString(result.NextSteps)
	}
	return sb.String()
}
