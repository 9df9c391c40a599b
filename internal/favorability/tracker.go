package favorability

import (
	"context"
	"fmt"
	"time"

	"github.com/easeaico/project-aiko/internal/types"
)

// Repo persists favorability state per conversation.
type Repo interface {
	// Get returns the state for a conversation, or an error wrapping
	// types.ErrNotFound when no record exists.
	Get(ctx context.Context, conversationID int) (*State, error)
	// Update writes the state back. expectedCount is the message count
	// the caller read; the write must fail if the stored count has moved.
	Update(ctx context.Context, state *State, expectedCount int) error
	// FirstMessageAt returns the timestamp of the conversation's first
	// message. ok is false when the conversation has no messages yet.
	FirstMessageAt(ctx context.Context, conversationID int) (first time.Time, ok bool, err error)
}

// Tracker owns level transitions, milestones, and anniversaries.
type Tracker struct {
	repo    Repo
	cfg     Config
	nowFunc func() time.Time
}

// NewTracker returns a Tracker using the given repo and parameters.
func NewTracker(repo Repo, cfg Config) *Tracker {
	if cfg.FamiliarThreshold <= 0 || cfg.IntimateThreshold <= cfg.FamiliarThreshold {
		cfg = DefaultConfig()
	}
	return &Tracker{
		repo:    repo,
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// Current returns the stored state without mutating it.
func (t *Tracker) Current(ctx context.Context, conversationID int) (*State, error) {
	state, err := t.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get favorability state: %w", err)
	}
	return state, nil
}

// RecordMessage increments the message count of a conversation,
// recomputes the level, and reports the one-shot signals that fired.
// A missing record is a setup-ordering bug in the caller: every
// conversation must be created together with its initial state.
func (t *Tracker) RecordMessage(ctx context.Context, conversationID int) (Update, error) {
	state, err := t.repo.Get(ctx, conversationID)
	if err != nil {
		return Update{}, fmt.Errorf("failed to get favorability state: %w", err)
	}

	expectedCount := state.MessageCount
	state.MessageCount++

	oldLevel := state.CurrentLevel
	newLevel := t.cfg.LevelFor(state.MessageCount)
	// Levels never regress, whatever the thresholds say.
	if newLevel < oldLevel {
		newLevel = oldLevel
	}
	state.CurrentLevel = newLevel

	update := Update{
		Level:          newLevel,
		LevelIncreased: newLevel > oldLevel,
		MessageCount:   state.MessageCount,
	}

	if containsInt(t.cfg.Milestones, state.MessageCount) && state.MessageCount > state.LastMilestone {
		update.MilestoneReached = true
		update.MilestoneNumber = state.MessageCount
		state.LastMilestone = state.MessageCount
	}

	days, ok, err := t.conversationAgeDays(ctx, conversationID)
	if err != nil {
		return Update{}, err
	}
	if ok && containsInt(t.cfg.Anniversaries, days) && days > state.LastAnniversary {
		update.AnniversaryReached = true
		update.AnniversaryDays = days
		state.LastAnniversary = days
	}

	state.LastUpdated = t.nowFunc()
	if err := t.repo.Update(ctx, state, expectedCount); err != nil {
		return Update{}, fmt.Errorf("%w: failed to update favorability state: %v", types.ErrPersistence, err)
	}
	return update, nil
}

// conversationAgeDays returns the whole days elapsed since the first
// message of the conversation.
func (t *Tracker) conversationAgeDays(ctx context.Context, conversationID int) (int, bool, error) {
	first, ok, err := t.repo.FirstMessageAt(ctx, conversationID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get first message time: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	elapsed := t.nowFunc().Sub(first)
	if elapsed < 0 {
		return 0, false, nil
	}
	return int(elapsed / (24 * time.Hour)), true, nil
}

func containsInt(values []int, target int) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
