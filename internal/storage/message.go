package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/easeaico/project-aiko/internal/types"
)

type messageModel struct {
	ID                int
	ConversationID    int
	Speaker           string
	SpeakerName       string
	Content           string
	FavorabilityLevel int
	// Embedding is optional, reserved for similarity retrieval.
	Embedding *pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time
}

func (messageModel) TableName() string {
	return "messages"
}

// MessageRepo is the append-only message log. Messages are never
// mutated or deleted.
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo returns a MessageRepo.
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Append(ctx context.Context, msg *types.Message, embedding []float32) (int, error) {
	if msg == nil {
		return 0, fmt.Errorf("message cannot be nil")
	}
	var vector *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vector = &v
	}
	record := messageModel{
		ConversationID:    msg.ConversationID,
		Speaker:           msg.Speaker,
		SpeakerName:       msg.SpeakerName,
		Content:           msg.Content,
		FavorabilityLevel: msg.FavorabilityLevel,
		Embedding:         vector,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}
	return record.ID, nil
}

// ListRecent returns up to limit messages, most recent first. Ordering
// follows the append sequence (id), not wall clock, so it stays correct
// under clock skew.
func (r *MessageRepo) ListRecent(ctx context.Context, conversationID, limit int) ([]types.Message, error) {
	var records []messageModel
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	results := make([]types.Message, 0, len(records))
	for _, record := range records {
		results = append(results, messageFromModel(record))
	}
	return results, nil
}

// First returns the conversation's first message by append sequence.
func (r *MessageRepo) First(ctx context.Context, conversationID int) (*types.Message, error) {
	var record messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("first message of conversation %d: %w", conversationID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query first message: %w", err)
	}
	result := messageFromModel(record)
	return &result, nil
}

func messageFromModel(model messageModel) types.Message {
	return types.Message{
		ID:                model.ID,
		ConversationID:    model.ConversationID,
		Speaker:           model.Speaker,
		SpeakerName:       model.SpeakerName,
		Content:           model.Content,
		FavorabilityLevel: model.FavorabilityLevel,
		CreatedAt:         model.CreatedAt,
	}
}
