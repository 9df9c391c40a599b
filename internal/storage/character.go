package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easeaico/project-aiko/internal/favorability"
	"github.com/easeaico/project-aiko/internal/types"
)

type characterModel struct {
	ID            int
	UserID        int
	Name          string
	Gender        string
	Nickname      string
	Identity      string
	DetailSetting string
	// OtherSetting is the structured persona portion, stored as JSONB.
	OtherSetting json.RawMessage `gorm:"type:jsonb"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (characterModel) TableName() string {
	return "characters"
}

// CharacterRepo accesses characters data.
type CharacterRepo struct {
	db *gorm.DB
}

// NewCharacterRepo returns a CharacterRepo.
func NewCharacterRepo(db *gorm.DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// Create persists a new character together with its conversation and the
// initial favorability record in one transaction, so the tracker's
// precondition (a state row exists) always holds.
func (r *CharacterRepo) Create(ctx context.Context, character *types.Character) (*types.Conversation, error) {
	if character == nil {
		return nil, fmt.Errorf("character cannot be nil")
	}
	other, err := json.Marshal(character.OtherSetting)
	if err != nil {
		return nil, fmt.Errorf("failed to encode persona details: %w", err)
	}

	var conv conversationModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := characterModel{
			UserID:        character.UserID,
			Name:          character.Name,
			Gender:        character.Gender,
			Nickname:      character.Nickname,
			Identity:      character.Identity,
			DetailSetting: character.DetailSetting,
			OtherSetting:  other,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert character: %w", err)
		}
		character.ID = record.ID

		conv = conversationModel{
			SessionID:   uuid.NewString(),
			UserID:      character.UserID,
			CharacterID: record.ID,
		}
		if err := tx.Create(&conv).Error; err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}

		state := favorabilityModel{
			ConversationID: conv.ID,
			CurrentLevel:   int(favorability.LevelUnfamiliar),
			MessageCount:   0,
			LastUpdated:    time.Now(),
		}
		if err := tx.Create(&state).Error; err != nil {
			return fmt.Errorf("failed to insert favorability record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	result := conversationFromModel(conv)
	return &result, nil
}

func (r *CharacterRepo) GetByID(ctx context.Context, id int) (*types.Character, error) {
	var model characterModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("character %d: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get character by id: %w", err)
	}
	return characterFromModel(model)
}

// ListByUser returns the user's characters, newest first.
func (r *CharacterRepo) ListByUser(ctx context.Context, userID int) ([]types.Character, error) {
	var models []characterModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}

	results := make([]types.Character, 0, len(models))
	for _, model := range models {
		character, err := characterFromModel(model)
		if err != nil {
			return nil, err
		}
		results = append(results, *character)
	}
	return results, nil
}

func characterFromModel(model characterModel) (*types.Character, error) {
	character := &types.Character{
		ID:            model.ID,
		UserID:        model.UserID,
		Name:          model.Name,
		Gender:        model.Gender,
		Nickname:      model.Nickname,
		Identity:      model.Identity,
		DetailSetting: model.DetailSetting,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
	if len(model.OtherSetting) > 0 {
		if err := json.Unmarshal(model.OtherSetting, &character.OtherSetting); err != nil {
			return nil, fmt.Errorf("failed to decode persona details: %w", err)
		}
	}
	return character, nil
}
