package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// chatbotModel maps the columns of the chatbots table this pipeline reads.
// The table itself belongs to the wider platform.
type chatbotModel struct {
	ID          string
	DisplayName string
}

func (chatbotModel) TableName() string {
	return "chatbots"
}

// ChatbotRepo reads chatbot metadata.
type ChatbotRepo struct {
	db *gorm.DB
}

// NewChatbotRepo returns a ChatbotRepo.
func NewChatbotRepo(db *gorm.DB) *ChatbotRepo {
	return &ChatbotRepo{db: db}
}

// DisplayName returns the chatbot's display name, or "" when the chatbot is
// unknown so callers can fall back to a generic label.
func (r *ChatbotRepo) DisplayName(ctx context.Context, chatbotID string) (string, error) {
	var model chatbotModel
	err := r.db.WithContext(ctx).
		Select("id", "display_name").
		Where("id = ?", chatbotID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get chatbot display name: %w", err)
	}
	return model.DisplayName, nil
}
