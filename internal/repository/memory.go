package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/classmind/recall/internal/types"
)

// memoryModel maps to the memories table.
type memoryModel struct {
	ID        int
	StudentID string
	ChatbotID string
	RoomID    string
	Summary   string
	// KeyTopics/LearningInsights are stored as JSONB for retrieval filters.
	KeyTopics              json.RawMessage `gorm:"type:jsonb"`
	LearningInsights       json.RawMessage `gorm:"type:jsonb"`
	NextSteps              string
	MessageCount           int
	SessionDurationSeconds int
	// Embedding stores the vector representation for similarity search.
	Embedding *pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time
}

func (memoryModel) TableName() string {
	return "memories"
}

// MemoryRepo accesses memory records. Records are insert-only.
type MemoryRepo struct {
	db *gorm.DB
}

// NewMemoryRepo returns a MemoryRepo.
func NewMemoryRepo(db *gorm.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

// AddMemory inserts a record and fills in its generated id and timestamp.
func (r *MemoryRepo) AddMemory(ctx context.Context, rec *types.MemoryRecord) error {
	var vector *pgvector.Vector
	if len(rec.Embedding) > 0 {
		v := pgvector.NewVector(rec.Embedding)
		vector = &v
	}
	topics, err := marshalJSON(rec.KeyTopics)
	if err != nil {
		return fmt.Errorf("failed to encode key topics: %w", err)
	}
	insights, err := marshalJSON(rec.LearningInsights)
	if err != nil {
		return fmt.Errorf("failed to encode learning insights: %w", err)
	}
	model := memoryModel{
		StudentID:              rec.StudentID,
		ChatbotID:              rec.ChatbotID,
		RoomID:                 rec.RoomID,
		Summary:                rec.Summary,
		KeyTopics:              topics,
		LearningInsights:       insights,
		NextSteps:              rec.NextSteps,
		MessageCount:           rec.MessageCount,
		SessionDurationSeconds: rec.SessionDurationSeconds,
		Embedding:              vector,
		CreatedAt:              rec.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	rec.ID = model.ID
	rec.CreatedAt = model.CreatedAt
	return nil
}

// Latest returns the newest record for the (student, chatbot, room) triple
// created at or after since, or nil when none exists.
func (r *MemoryRepo) Latest(ctx context.Context, studentID, chatbotID, roomID string, since time.Time) (*types.MemoryRecord, error) {
	var model memoryModel
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND chatbot_id = ? AND room_id = ? AND created_at >= ?", studentID, chatbotID, roomID, since).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest memory: %w", err)
	}
	rec := memoryFromModel(model)
	return &rec, nil
}

// Recent returns up to limit records for the student/chatbot pair, newest
// first. An empty result is normal.
func (r *MemoryRepo) Recent(ctx context.Context, studentID, chatbotID string, limit int) ([]types.MemoryRecord, error) {
	var models []memoryModel
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND chatbot_id = ?", studentID, chatbotID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent memories: %w", err)
	}

	results := make([]types.MemoryRecord, 0, len(models))
	for _, model := range models {
		results = append(results, memoryFromModel(model))
	}
	return results, nil
}

// SearchSimilar runs a cosine-similarity search over the embedding column.
func (r *MemoryRepo) SearchSimilar(ctx context.Context, studentID, chatbotID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedMemory, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT summary AS content, key_topics, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM memories
		WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1) > $2
		  AND student_id = $3 AND chatbot_id = $4
		ORDER BY similarity DESC
		LIMIT $5`

	var rows []struct {
		Content    string
		KeyTopics  json.RawMessage
		Similarity float64
		CreatedAt  time.Time
	}
	if err := r.db.WithContext(ctx).
		Raw(query, pgvector.NewVector(embedding), threshold, studentID, chatbotID, topK).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar memories: %w", err)
	}

	results := make([]types.RetrievedMemory, 0, len(rows))
	for _, row := range rows {
		var topics []string
		_ = unmarshalJSON(row.KeyTopics, &topics)
		results = append(results, types.RetrievedMemory{
			Content:    row.Content,
			KeyTopics:  topics,
			Similarity: row.Similarity,
			CreatedAt:  row.CreatedAt,
		})
	}
	return results, nil
}

// memoryFromModel converts database model to domain struct.
func memoryFromModel(model memoryModel) types.MemoryRecord {
	var topics []string
	var insights types.LearningInsights
	_ = unmarshalJSON(model.KeyTopics, &topics)
	_ = unmarshalJSON(model.LearningInsights, &insights)
	return types.MemoryRecord{
		ID:                     model.ID,
		StudentID:              model.StudentID,
		ChatbotID:              model.ChatbotID,
		RoomID:                 model.RoomID,
		Summary:                model.Summary,
		KeyTopics:              topics,
		LearningInsights:       insights,
		NextSteps:              model.NextSteps,
		MessageCount:           model.MessageCount,
		SessionDurationSeconds: model.SessionDurationSeconds,
		CreatedAt:              model.CreatedAt,
	}
}

// marshalJSON encodes a value into JSONB, returning nil for empty values.
func marshalJSON(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

// unmarshalJSON decodes JSONB into the provided target.
func unmarshalJSON(data json.RawMessage, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
