// Package prompt assembles the layered system prompts sent to the
// remote models.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/easeaico/project-aiko/internal/types"
)

// BuildContext contains all inputs for system prompt assembly.
type BuildContext struct {
	Character *types.Character
	User      *types.User
	// History is chronological, oldest first.
	History []types.Message
	// Level is the favorability level in effect for this turn.
	Level int
	// LevelName is the display name of the level.
	LevelName string
}

// Builder assembles system prompts.
type Builder struct {
	historyLimit int
	nowFunc      func() time.Time
}

// NewBuilder creates a prompt Builder.
func NewBuilder(historyLimit int) *Builder {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Builder{
		historyLimit: historyLimit,
		nowFunc:      time.Now,
	}
}

// BuildSystem assembles the full system prompt for one exchange.
func (b *Builder) BuildSystem(ctx BuildContext) (string, error) {
	if ctx.Character == nil {
		return "", fmt.Errorf("character is required")
	}
	if ctx.User == nil {
		return "", fmt.Errorf("user is required")
	}

	history := ctx.History
	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}

	tone, ok := toneInstructions[ctx.Level]
	if !ok {
		tone = toneInstructions[1]
	}

	data := struct {
		Character       *types.Character
		UserName        string
		LevelName       string
		ToneInstruction string
		History         []types.Message
		Now             string
	}{
		Character:       ctx.Character,
		UserName:        ctx.User.Username,
		LevelName:       ctx.LevelName,
		ToneInstruction: tone,
		History:         history,
		Now:             b.nowFunc().Format(time.RFC3339),
	}

	var buf bytes.Buffer
	if err := systemTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build system prompt: %w", err)
	}
	return buf.String(), nil
}

// BuildBackground renders the background story generation prompt.
func BuildBackground(characterName, personality, ageRange, occupation, talkingStyle string, interests []string) (string, error) {
	interestsStr := "閱讀和音樂"
	if len(interests) > 0 {
		interestsStr = strings.Join(interests, "、")
	}
	data := struct {
		CharacterName string
		Personality   string
		AgeRange      string
		Occupation    string
		Interests     string
		TalkingStyle  string
	}{
		CharacterName: characterName,
		Personality:   personality,
		AgeRange:      ageRange,
		Occupation:    occupation,
		Interests:     interestsStr,
		TalkingStyle:  talkingStyle,
	}
	var buf bytes.Buffer
	if err := backgroundTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build background prompt: %w", err)
	}
	return buf.String(), nil
}
