// Package summarizer turns session transcripts into structured memory
// summaries via an OpenAI-compatible completion service.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/classmind/recall/internal/types"
)

const (
	// defaultChatbotName labels agent turns when no display name is known.
	defaultChatbotName = "Tutor"

	// summaryTemperature biases the model toward consistent extraction
	// rather than creative writing.
	summaryTemperature = 0.3

	defaultTimeout = 8 * time.Second
)

// summaryInstruction pins the output contract. The response must be a bare
// JSON object matching the schema below.
const summaryInstruction = `You are an educational conversation summarizer for a tutoring platform.
Analyze the conversation between a student and a tutoring chatbot.

Extract:
1. A concise summary of what was discussed
2. The key topics covered
3. Concepts the student clearly understood
4. Concepts the student struggled with
5. A short assessment of the student's progress
6. Recommended next steps for the student

Return ONLY a valid JSON object with this exact shape:
{"summary": string, "keyTopics": string[], "learningInsights": {"understood": string[], "struggling": string[], "progress": string}, "nextSteps": string}

Do not include any text outside the JSON object.`

// Client calls the completion service with a fixed prompt and contract.
type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	timeout        time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each completion request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEmbeddingModel sets the model used for embedding vectors.
func WithEmbeddingModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// New builds a Client. baseURL may be empty for the default endpoint.
// Retries are disabled: retry policy belongs to the caller or job backend.
func New(apiKey, baseURL, model string, opts ...Option) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(reqOpts...)

	c := &Client{
		client:         &client,
		model:          model,
		embeddingModel: "text-embedding-3-small",
		timeout:        defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summarize produces a structured summary for the transcript. It never
// fails: any transport, parse, or contract violation degrades to the fixed
// fallback result so persistence is never blocked by the model.
func (c *Client) Summarize(ctx context.Context, messages []types.Message, chatbotName string) types.SummaryResult {
	transcript := RenderTranscript(messages, chatbotName)

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(cctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summaryInstruction),
			openai.UserMessage(transcript),
		},
		Temperature: openai.Float(summaryTemperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		slog.Warn("summary completion failed, using fallback", "error", err.Error())
		return Fallback()
	}
	if resp == nil || len(resp.Choices) == 0 {
		slog.Warn("summary completion returned no choices, using fallback")
		return Fallback()
	}

	result, err := parseSummaryJSON(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Warn("summary output rejected, using fallback", "error", err.Error())
		return Fallback()
	}
	return result
}

// RenderTranscript concatenates messages into the deterministic prompt body:
// one "<label>: <content>" line per turn, blank-line separated.
func RenderTranscript(messages []types.Message, chatbotName string) string {
	if chatbotName == "" {
		chatbotName = defaultChatbotName
	}
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		label := chatbotName
		if msg.Role == types.RoleUser {
			label = "Student"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, msg.Content))
	}
	return strings.Join(lines, "\n\n")
}

// Fallback is the degraded result persisted when summarization fails.
func Fallback() types.SummaryResult {
	return types.SummaryResult{
		Summary:   "Student had a conversation with the chatbot.",
		KeyTopics: []string{},
		LearningInsights: types.LearningInsights{
			Understood: []string{},
			Struggling: []string{},
			Progress:   "Unable to assess",
		},
		NextSteps: "Continue practicing the topics from this session.",
	}
}

var (
	resolveSchemaOnce sync.Once
	resolvedSchema    *jsonschema.Resolved
	resolveSchemaErr  error
)

func outputSchema() (*jsonschema.Resolved, error) {
	resolveSchemaOnce.Do(func() {
		schema := &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"summary": {Type: "string"},
				"keyTopics": {
					Type:  "array",
					Items: &jsonschema.Schema{Type: "string"},
				},
				"learningInsights": {
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"understood": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
						"struggling": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
						"progress":   {Type: "string"},
					},
				},
				"nextSteps": {Type: "string"},
			},
			Required: []string{"summary"},
		}
		resolvedSchema, resolveSchemaErr = schema.Resolve(nil)
	})
	return resolvedSchema, resolveSchemaErr
}

// parseSummaryJSON extracts the JSON object from the model output, checks it
// against the output schema, and decodes it.
func parseSummaryJSON(raw string) (types.SummaryResult, error) {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return types.SummaryResult{}, fmt.Errorf("no JSON object in summary output")
	}
	clean = clean[start : end+1]

	var instance map[string]any
	if err := json.Unmarshal([]byte(clean), &instance); err != nil {
		return types.SummaryResult{}, fmt.Errorf("failed to parse summary json: %w", err)
	}

	schema, err := outputSchema()
	if err != nil {
		return types.SummaryResult{}, fmt.Errorf("failed to resolve summary schema: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return types.SummaryResult{}, fmt.Errorf("summary output violates schema: %w", err)
	}

	var result types.SummaryResult
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return types.SummaryResult{}, fmt.Errorf("failed to decode summary json: %w", err)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return types.SummaryResult{}, fmt.Errorf("summary output missing summary text")
	}
	if result.KeyTopics == nil {
		result.KeyTopics = []string{}
	}
	if result.LearningInsights.Understood == nil {
		result.LearningInsights.Understood = []string{}
	}
	if result.LearningInsights.Struggling == nil {
		result.LearningInsights.Struggling = []string{}
	}
	return result, nil
}
