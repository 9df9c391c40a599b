package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easeaico/project-aiko/internal/favorability"
	"github.com/easeaico/project-aiko/internal/types"
)

const (
	defaultHistoryLimit = 100
	defaultReplyTimeout = 60 * time.Second
)

// Reply is the combined result of one exchange.
type Reply struct {
	Text               string             `json:"reply"`
	Level              favorability.Level `json:"favorability_level"`
	LevelName          string             `json:"level_name"`
	LevelIncreased     bool               `json:"level_increased"`
	MessageCount       int                `json:"message_count"`
	MilestoneReached   bool               `json:"milestone_reached"`
	MilestoneNumber    int                `json:"milestone_number"`
	AnniversaryReached bool               `json:"anniversary_reached"`
	AnniversaryDays    int                `json:"anniversary_days"`
}

// Service orchestrates exchanges between a user and a character. All
// collaborators are injected; there is no ambient client state.
type Service struct {
	conversations ConversationRepo
	messages      MessageRepo
	characters    CharacterRepo
	users         UserRepo
	tracker       *favorability.Tracker
	responder     CharacterResponder
	historyLimit  int
	replyTimeout  time.Duration
	locks         *convLocks
}

// Option configures a Service.
type Option func(*Service)

// WithHistoryLimit bounds the history sent to the responder.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithReplyTimeout bounds the remote responder call.
func WithReplyTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.replyTimeout = timeout
		}
	}
}

// NewService returns a conversation Service.
func NewService(
	conversations ConversationRepo,
	messages MessageRepo,
	characters CharacterRepo,
	users UserRepo,
	tracker *favorability.Tracker,
	responder CharacterResponder,
	opts ...Option,
) *Service {
	s := &Service{
		conversations: conversations,
		messages:      messages,
		characters:    characters,
		users:         users,
		tracker:       tracker,
		responder:     responder,
		historyLimit:  defaultHistoryLimit,
		replyTimeout:  defaultReplyTimeout,
		locks:         newConvLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage runs one exchange: append the user's message stamped with
// the current level, call the responder, record the turn against the
// favorability tracker, and append the reply stamped with the updated
// level. A responder failure keeps the user's message but mutates
// nothing else.
func (s *Service) SendMessage(ctx context.Context, userID, characterID int, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, fmt.Errorf("message text cannot be empty")
	}

	conv, err := s.conversations.GetByParticipants(ctx, userID, characterID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to resolve conversation: %w", err)
	}
	character, err := s.characters.GetByID(ctx, characterID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to get character: %w", err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to get user: %w", err)
	}

	// message_count and level are read-modify-write state; exchanges for
	// the same conversation must not interleave.
	lock := s.locks.forConversation(conv.ID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.tracker.Current(ctx, conv.ID)
	if err != nil {
		return Reply{}, err
	}
	priorLevel := state.CurrentLevel

	userMsg := &types.Message{
		ConversationID:    conv.ID,
		Speaker:           types.SpeakerUser,
		SpeakerName:       user.Username,
		Content:           text,
		FavorabilityLevel: int(priorLevel),
	}
	if _, err := s.messages.Append(ctx, userMsg, nil); err != nil {
		return Reply{}, fmt.Errorf("%w: failed to append user message: %v", types.ErrPersistence, err)
	}

	history, err := s.recentHistory(ctx, conv.ID)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: failed to load history: %v", types.ErrPersistence, err)
	}

	replyCtx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	replyText, err := s.responder.Reply(replyCtx, ReplyRequest{
		Character: character,
		User:      user,
		History:   history,
		UserText:  text,
		Level:     int(priorLevel),
	})
	cancel()
	if err != nil {
		// The user's message stays recorded; the exchange is not counted.
		slog.Error("character responder failed", "conversation_id", conv.ID, "error", err)
		return Reply{}, fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, err)
	}

	// One favorability increment per completed exchange.
	update, err := s.tracker.RecordMessage(ctx, conv.ID)
	if err != nil {
		return Reply{}, err
	}

	// The reply is stamped with the post-update level so history reflects
	// what this exchange led to.
	characterMsg := &types.Message{
		ConversationID:    conv.ID,
		Speaker:           types.SpeakerCharacter,
		SpeakerName:       character.Name,
		Content:           replyText,
		FavorabilityLevel: int(update.Level),
	}
	if _, err := s.messages.Append(ctx, characterMsg, nil); err != nil {
		return Reply{}, fmt.Errorf("%w: failed to append character reply: %v", types.ErrPersistence, err)
	}

	if update.LevelIncreased {
		slog.Info("favorability level increased",
			"conversation_id", conv.ID,
			"level", int(update.Level),
			"message_count", update.MessageCount)
	}

	return Reply{
		Text:               replyText,
		Level:              update.Level,
		LevelName:          update.Level.Name(),
		LevelIncreased:     update.LevelIncreased,
		MessageCount:       update.MessageCount,
		MilestoneReached:   update.MilestoneReached,
		MilestoneNumber:    update.MilestoneNumber,
		AnniversaryReached: update.AnniversaryReached,
		AnniversaryDays:    update.AnniversaryDays,
	}, nil
}

// recentHistory returns the conversation's recent messages in
// chronological order, excluding the just-appended user message.
func (s *Service) recentHistory(ctx context.Context, conversationID int) ([]types.Message, error) {
	recent, err := s.messages.ListRecent(ctx, conversationID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	// Most-recent-first -> oldest first.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	if len(recent) > 0 {
		recent = recent[:len(recent)-1]
	}
	return recent, nil
}
