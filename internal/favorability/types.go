// Package favorability derives the relationship state of a conversation
// from its cumulative message count and age. The level escalates through
// three fixed tiers and never regresses.
package favorability

import "time"

// Level is a favorability tier.
type Level int

const (
	// LevelUnfamiliar is the initial tier.
	LevelUnfamiliar Level = 1
	// LevelFamiliar is reached once the count passes the familiar threshold.
	LevelFamiliar Level = 2
	// LevelIntimate is the final tier.
	LevelIntimate Level = 3
)

// Name returns the display name of the level.
func (l Level) Name() string {
	switch l {
	case LevelFamiliar:
		return "熟悉期"
	case LevelIntimate:
		return "親密期"
	default:
		return "陌生期"
	}
}

// State is the persisted favorability record of a conversation.
// LastMilestone and LastAnniversary remember the most recently notified
// values so a retried call landing on the same count does not re-fire
// the one-shot signals.
type State struct {
	ConversationID  int
	CurrentLevel    Level
	MessageCount    int
	LastMilestone   int
	LastAnniversary int
	LastUpdated     time.Time
}

// Update is the result of recording one message against a conversation.
type Update struct {
	Level              Level
	LevelIncreased     bool
	MessageCount       int
	MilestoneReached   bool
	MilestoneNumber    int
	AnniversaryReached bool
	AnniversaryDays    int
}

// Config holds the tunable progression parameters. The three-tier
// semantics are fixed; only the boundaries move.
type Config struct {
	// FamiliarThreshold is the count at which level 2 begins.
	FamiliarThreshold int
	// IntimateThreshold is the count at which level 3 begins.
	IntimateThreshold int
	// Milestones are the message counts that fire a milestone signal.
	Milestones []int
	// Anniversaries are the conversation ages, in whole days, that fire
	// an anniversary signal.
	Anniversaries []int
}

// DefaultConfig returns the standard progression parameters.
func DefaultConfig() Config {
	return Config{
		FamiliarThreshold: 20,
		IntimateThreshold: 50,
		Milestones:        []int{50, 100, 200, 500, 1000},
		Anniversaries:     []int{7, 30, 100, 365},
	}
}

// LevelFor maps a message count to its level.
func (c Config) LevelFor(count int) Level {
	switch {
	case count >= c.IntimateThreshold:
		return LevelIntimate
	case count >= c.FamiliarThreshold:
		return LevelFamiliar
	default:
		return LevelUnfamiliar
	}
}
