// Package conversation coordinates one chat exchange: persist the user
// message, obtain the character's reply, and advance favorability, as a
// single serialized unit per conversation.
package conversation

import (
	"context"

	"github.com/easeaico/project-aiko/internal/types"
)

// ReplyRequest carries everything the remote responder needs for one turn.
type ReplyRequest struct {
	Character *types.Character
	User      *types.User
	// History is in chronological order, oldest first.
	History []types.Message
	// UserText is the new inbound message, already appended to history
	// storage but not included in History.
	UserText string
	// Level is the favorability level in effect for this turn.
	Level int
}

// CharacterResponder produces the character's reply. Implementations
// wrap remote LLM services and may fail with transport errors; the
// orchestrator maps any failure to types.ErrUpstreamUnavailable.
type CharacterResponder interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// ConversationRepo resolves conversations.
type ConversationRepo interface {
	// GetByParticipants returns the conversation for a (user, character)
	// pair, or an error wrapping types.ErrNotFound.
	GetByParticipants(ctx context.Context, userID, characterID int) (*types.Conversation, error)
}

// MessageRepo is the append-only message log.
type MessageRepo interface {
	// Append stores a message and returns its ID. embedding is optional.
	Append(ctx context.Context, msg *types.Message, embedding []float32) (int, error)
	// ListRecent returns up to limit messages, most recent first by
	// append sequence.
	ListRecent(ctx context.Context, conversationID, limit int) ([]types.Message, error)
}

// CharacterRepo fetches character profiles.
type CharacterRepo interface {
	GetByID(ctx context.Context, id int) (*types.Character, error)
}

// UserRepo fetches users.
type UserRepo interface {
	GetByID(ctx context.Context, id int) (*types.User, error)
}
