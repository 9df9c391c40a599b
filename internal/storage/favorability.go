package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/project-aiko/internal/favorability"
	"github.com/easeaico/project-aiko/internal/types"
)

type favorabilityModel struct {
	ID              int
	ConversationID  int
	CurrentLevel    int
	MessageCount    int
	LastMilestone   int
	LastAnniversary int
	LastUpdated     time.Time
}

func (favorabilityModel) TableName() string {
	return "favorability_tracking"
}

// FavorabilityRepo persists per-conversation favorability state.
type FavorabilityRepo struct {
	db *gorm.DB
}

// NewFavorabilityRepo returns a FavorabilityRepo.
func NewFavorabilityRepo(db *gorm.DB) *FavorabilityRepo {
	return &FavorabilityRepo{db: db}
}

func (r *FavorabilityRepo) Get(ctx context.Context, conversationID int) (*favorability.State, error) {
	var model favorabilityModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("favorability record for conversation %d: %w", conversationID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get favorability record: %w", err)
	}
	return &favorability.State{
		ConversationID:  model.ConversationID,
		CurrentLevel:    favorability.Level(model.CurrentLevel),
		MessageCount:    model.MessageCount,
		LastMilestone:   model.LastMilestone,
		LastAnniversary: model.LastAnniversary,
		LastUpdated:     model.LastUpdated,
	}, nil
}

// Update writes the state back guarded by the message count the caller
// read, so a concurrent increment that slipped past the service lock
// fails instead of silently losing an update.
func (r *FavorabilityRepo) Update(ctx context.Context, state *favorability.State, expectedCount int) error {
	result := r.db.WithContext(ctx).
		Model(&favorabilityModel{}).
		Where("conversation_id = ?", state.ConversationID).
		Where("message_count = ?", expectedCount).
		Updates(map[string]any{
			"current_level":    int(state.CurrentLevel),
			"message_count":    state.MessageCount,
			"last_milestone":   state.LastMilestone,
			"last_anniversary": state.LastAnniversary,
			"last_updated":     state.LastUpdated,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update favorability record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("favorability record for conversation %d moved underneath the update", state.ConversationID)
	}
	return nil
}

func (r *FavorabilityRepo) FirstMessageAt(ctx context.Context, conversationID int) (time.Time, bool, error) {
	var record messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to query first message: %w", err)
	}
	return record.CreatedAt, true, nil
}
