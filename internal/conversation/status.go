package conversation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/easeaico/project-aiko/internal/favorability"
	"github.com/easeaico/project-aiko/internal/types"
)

const summaryMessageLimit = 1000

// Status describes where a conversation stands in the progression.
type Status struct {
	Level           favorability.Level `json:"current_level"`
	LevelName       string             `json:"level_name"`
	MessageCount    int                `json:"message_count"`
	ProgressPercent float64            `json:"progress_percentage"`
	// NextLevelAt is the message count where the next level begins, nil
	// at the final level.
	NextLevelAt *int      `json:"next_level_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Summary aggregates conversation statistics.
type Summary struct {
	TotalMessages     int        `json:"total_messages"`
	UserMessages      int        `json:"user_messages"`
	CharacterMessages int        `json:"character_messages"`
	FirstMessageAt    *time.Time `json:"first_message_at"`
	LastMessageAt     *time.Time `json:"last_message_at"`
	ConversationDays  int        `json:"conversation_days"`
	AveragePerDay     float64    `json:"average_messages_per_day"`
}

// FavorabilityStatus reports the current level and the progress toward
// the next one for a (user, character) pair.
func (s *Service) FavorabilityStatus(ctx context.Context, userID, characterID int, cfg favorability.Config) (Status, error) {
	conv, err := s.conversations.GetByParticipants(ctx, userID, characterID)
	if err != nil {
		return Status{}, fmt.Errorf("failed to resolve conversation: %w", err)
	}
	state, err := s.tracker.Current(ctx, conv.ID)
	if err != nil {
		return Status{}, err
	}

	status := Status{
		Level:        state.CurrentLevel,
		LevelName:    state.CurrentLevel.Name(),
		MessageCount: state.MessageCount,
		LastUpdated:  state.LastUpdated,
	}
	switch state.CurrentLevel {
	case favorability.LevelUnfamiliar:
		status.ProgressPercent = progressPercent(state.MessageCount, 0, cfg.FamiliarThreshold)
		next := cfg.FamiliarThreshold
		status.NextLevelAt = &next
	case favorability.LevelFamiliar:
		status.ProgressPercent = progressPercent(state.MessageCount, cfg.FamiliarThreshold, cfg.IntimateThreshold)
		next := cfg.IntimateThreshold
		status.NextLevelAt = &next
	default:
		status.ProgressPercent = 100
	}
	return status, nil
}

// ConversationSummary aggregates message statistics for a (user,
// character) pair.
func (s *Service) ConversationSummary(ctx context.Context, userID, characterID int) (Summary, error) {
	conv, err := s.conversations.GetByParticipants(ctx, userID, characterID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to resolve conversation: %w", err)
	}
	messages, err := s.messages.ListRecent(ctx, conv.ID, summaryMessageLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: failed to load messages: %v", types.ErrPersistence, err)
	}
	if len(messages) == 0 {
		return Summary{}, nil
	}

	summary := Summary{TotalMessages: len(messages)}
	for _, msg := range messages {
		if msg.Speaker == types.SpeakerUser {
			summary.UserMessages++
		} else {
			summary.CharacterMessages++
		}
	}

	// messages come most-recent-first.
	last := messages[0].CreatedAt
	first := messages[len(messages)-1].CreatedAt
	summary.FirstMessageAt = &first
	summary.LastMessageAt = &last

	firstDay := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	summary.ConversationDays = int(lastDay.Sub(firstDay)/(24*time.Hour)) + 1
	summary.AveragePerDay = math.Round(float64(summary.TotalMessages)/float64(summary.ConversationDays)*10) / 10
	return summary, nil
}

func progressPercent(count, from, to int) float64 {
	if to <= from {
		return 100
	}
	percent := float64(count-from) / float64(to-from) * 100
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	return math.Round(percent*10) / 10
}
