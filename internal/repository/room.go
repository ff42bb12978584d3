package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// roomModel maps the columns of the rooms table this pipeline reads. The
// table itself belongs to the wider platform.
type roomModel struct {
	ID      string
	OwnerID string
}

func (roomModel) TableName() string {
	return "rooms"
}

// RoomRepo reads room metadata.
type RoomRepo struct {
	db *gorm.DB
}

// NewRoomRepo returns a RoomRepo.
func NewRoomRepo(db *gorm.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// OwnerID returns the id of the teacher owning the room, or "" when the room
// is unknown.
func (r *RoomRepo) OwnerID(ctx context.Context, roomID string) (string, error) {
	var model roomModel
	err := r.db.WithContext(ctx).
		Select("id", "owner_id").
		Where("id = ?", roomID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get room owner: %w", err)
	}
	return model.OwnerID, nil
}
