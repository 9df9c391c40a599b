package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/project-aiko/internal/types"
)

type conversationModel struct {
	ID          int
	SessionID   string
	UserID      int
	CharacterID int
	CreatedAt   time.Time
}

func (conversationModel) TableName() string {
	return "conversations"
}

// ConversationRepo accesses conversations data.
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo returns a ConversationRepo.
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) GetByParticipants(ctx context.Context, userID, characterID int) (*types.Conversation, error) {
	var model conversationModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND character_id = ?", userID, characterID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation for user %d and character %d: %w", userID, characterID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	result := conversationFromModel(model)
	return &result, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int) (*types.Conversation, error) {
	var model conversationModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation %d: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation by id: %w", err)
	}
	result := conversationFromModel(model)
	return &result, nil
}

func conversationFromModel(model conversationModel) types.Conversation {
	return types.Conversation{
		ID:          model.ID,
		SessionID:   model.SessionID,
		UserID:      model.UserID,
		CharacterID: model.CharacterID,
		CreatedAt:   model.CreatedAt,
	}
}
