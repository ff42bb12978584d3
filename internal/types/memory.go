package types

import "time"

const (
	// RoleUser marks a message authored by the student.
	RoleUser = "user"
	// RoleAgent marks a message authored by the tutoring chatbot.
	RoleAgent = "agent"
)

// Message is a single turn of a tutoring session transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SaveRequest carries one finished session to the memory pipeline.
type SaveRequest struct {
	StudentID        string    `json:"student_id"`
	ChatbotID        string    `json:"chatbot_id"`
	RoomID           string    `json:"room_id"`
	Messages         []Message `json:"messages"`
	SessionStartTime time.Time `json:"session_start_time"`
}

// LearningInsights captures comprehension signals extracted from a session.
type LearningInsights struct {
	Understood []string `json:"understood"`
	Struggling []string `json:"struggling"`
	Progress   string   `json:"progress"`
}

// SummaryResult is the structured output of the summarizer.
type SummaryResult struct {
	Summary          string           `json:"summary"`
	KeyTopics        []string         `json:"keyTopics"`
	LearningInsights LearningInsights `json:"learningInsights"`
	NextSteps        string           `json:"nextSteps"`
}

// MemoryRecord is the persisted summary of one session. Records are
// append-only; the pipeline never updates or deletes them.
type MemoryRecord struct {
	ID                     int              `json:"id"`
	StudentID              string           `json:"student_id"`
	ChatbotID              string           `json:"chatbot_id"`
	RoomID                 string           `json:"room_id"`
	Summary                string           `json:"summary"`
	KeyTopics              []string         `json:"key_topics"`
	LearningInsights       LearningInsights `json:"learning_insights"`
	NextSteps              string           `json:"next_steps"`
	MessageCount           int              `json:"message_count"`
	SessionDurationSeconds int              `json:"session_duration_seconds"`
	Embedding              []float32        `json:"-"` // embedding vector, not serialized
	CreatedAt              time.Time        `json:"created_at"`
}

// LearningProfile is the longitudinal per-student-per-chatbot progress
// record. Maintained outside this pipeline; read-only here.
type LearningProfile struct {
	ID            int       `json:"id"`
	StudentID     string    `json:"student_id"`
	ChatbotID     string    `json:"chatbot_id"`
	Strengths     []string  `json:"strengths"`
	FocusAreas    []string  `json:"focus_areas"`
	ProgressNotes string    `json:"progress_notes"`
	SessionCount  int       `json:"session_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RetrievedMemory is a memory snippet returned by similarity search.
type RetrievedMemory struct {
	Content    string    `json:"content"`
	KeyTopics  []string  `json:"key_topics"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}
