package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/classmind/recall/internal/types"
)

// profileModel maps to the learning_profiles table. The pipeline never
// writes this table; it is maintained by the wider platform.
type profileModel struct {
	ID            int
	StudentID     string
	ChatbotID     string
	Strengths     json.RawMessage `gorm:"type:jsonb"`
	FocusAreas    json.RawMessage `gorm:"type:jsonb"`
	ProgressNotes string
	SessionCount  int
	UpdatedAt     time.Time
}

func (profileModel) TableName() string {
	return "learning_profiles"
}

// ProfileRepo reads learning profiles.
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo returns a ProfileRepo.
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Get returns the profile for the student/chatbot pair, or nil when none
// exists. Absence is a normal outcome, not an error.
func (r *ProfileRepo) Get(ctx context.Context, studentID, chatbotID string) (*types.LearningProfile, error) {
	var model profileModel
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND chatbot_id = ?", studentID, chatbotID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query learning profile: %w", err)
	}

	var strengths, focusAreas []string
	_ = unmarshalJSON(model.Strengths, &strengths)
	_ = unmarshalJSON(model.FocusAreas, &focusAreas)
	return &types.LearningProfile{
		ID:            model.ID,
		StudentID:     model.StudentID,
		ChatbotID:     model.ChatbotID,
		Strengths:     strengths,
		FocusAreas:    focusAreas,
		ProgressNotes: model.ProgressNotes,
		SessionCount:  model.SessionCount,
		UpdatedAt:     model.UpdatedAt,
	}, nil
}
