// Package memory orchestrates the conversation-memory pipeline: dedup
// guarding, dispatching saves to the job backend or the direct path, and
// retrieval of persisted memories.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/classmind/recall/internal/types"
)

var (
	// ErrForbidden marks callers that are neither the subject student nor
	// an owning teacher.
	ErrForbidden = errors.New("caller may not save memories for this student")
	// ErrEmptyTranscript marks save requests without messages.
	ErrEmptyTranscript = errors.New("transcript must not be empty")
	// ErrMissingSubject marks save requests lacking one of the subject ids.
	ErrMissingSubject = errors.New("student, chatbot, and room ids are required")
	// ErrInvalidStartTime marks a missing or future session start time.
	ErrInvalidStartTime = errors.New("session start time must be set and not in the future")
)

const (
	ActorRoleStudent = "student"
	ActorRoleTeacher = "teacher"
)

// Actor is the authenticated caller, as resolved by the session layer.
type Actor struct {
	ID   string
	Role string
}

// MemoryStore is the persistence boundary for memory records.
type MemoryStore interface {
	AddMemory(ctx context.Context, rec *types.MemoryRecord) error
	Latest(ctx context.Context, studentID, chatbotID, roomID string, since time.Time) (*types.MemoryRecord, error)
	Recent(ctx context.Context, studentID, chatbotID string, limit int) ([]types.MemoryRecord, error)
	SearchSimilar(ctx context.Context, studentID, chatbotID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedMemory, error)
}

// ProfileStore reads learning profiles.
type ProfileStore interface {
	Get(ctx context.Context, studentID, chatbotID string) (*types.LearningProfile, error)
}

// ChatbotDirectory resolves chatbot display names.
type ChatbotDirectory interface {
	DisplayName(ctx context.Context, chatbotID string) (string, error)
}

// RoomDirectory resolves room ownership for authorization.
type RoomDirectory interface {
	OwnerID(ctx context.Context, roomID string) (string, error)
}

// Summarizer produces a structured summary for a transcript. It must not
// fail; degraded output is returned instead.
type Summarizer interface {
	Summarize(ctx context.Context, messages []types.Message, chatbotName string) types.SummaryResult
}

// Embedder produces embedding vectors for storage and search.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Authorizer decides whether an actor may save memories for a student.
type Authorizer interface {
	AuthorizeSave(ctx context.Context, actor Actor, req types.SaveRequest) error
}

// SubjectOrOwnerAuthorizer permits the subject student themselves, or a
// teacher owning the room the session happened in.
type SubjectOrOwnerAuthorizer struct {
	Rooms RoomDirectory
}

func (a *SubjectOrOwnerAuthorizer) AuthorizeSave(ctx context.Context, actor Actor, req types.SaveRequest) error {
	if actor.ID != "" && actor.ID == req.StudentID {
		return nil
	}
	if actor.Role == ActorRoleTeacher && a.Rooms != nil {
		owner, err := a.Rooms.OwnerID(ctx, req.RoomID)
		if err != nil {
			return err
		}
		if owner != "" && owner == actor.ID {
			return nil
		}
	}
	return ErrForbidden
}

var _ Authorizer = (*SubjectOrOwnerAuthorizer)(nil)
