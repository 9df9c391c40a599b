// Package persona synthesizes companion character profiles from user
// preferences.
package persona

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/easeaico/project-aiko/internal/types"
)

const (
	maxIdentityLen = 200
	maxDetailLen   = 500
	maxStoryLen    = 200
)

// PersonalityType groups talking styles into persona archetypes.
type PersonalityType string

const (
	PersonalityGentle       PersonalityType = "gentle"
	PersonalityCheerful     PersonalityType = "cheerful"
	PersonalityIntellectual PersonalityType = "intellectual"
	PersonalityCute         PersonalityType = "cute"
)

var nameMappings = map[PersonalityType][]string{
	PersonalityGentle:       {"小雨", "婉婷", "雨柔", "思婷", "靜雯"},
	PersonalityCheerful:     {"欣怡", "小晴", "樂瑤", "晴心", "悅欣"},
	PersonalityIntellectual: {"雅文", "靜儀", "書涵", "詩涵", "慧雯"},
	PersonalityCute:         {"小萌", "甜心", "可兒", "糖糖", "小柔"},
}

var nicknameMappings = map[PersonalityType][]string{
	PersonalityGentle:       {"小雨", "柔柔", "雨雨"},
	PersonalityCheerful:     {"晴晴", "小陽光", "開心果"},
	PersonalityIntellectual: {"雅雅", "小書蟲", "文文"},
	PersonalityCute:         {"小可愛", "甜甜", "萌萌"},
}

var personalityDescriptions = map[PersonalityType]string{
	PersonalityGentle:       "性格溫柔體貼，說話輕聲細語，總是關心對方的感受。喜歡用溫暖的話語鼓勵人，細心觀察對方的需要。",
	PersonalityCheerful:     "性格活潑開朗，充滿活力和熱情。說話時常帶著笑容，喜歡用輕鬆幽默的方式交流。",
	PersonalityIntellectual: "性格知性優雅，談吐有內涵。喜歡深度交流，對文化藝術有獨特見解，說話條理清晰。",
	PersonalityCute:         "性格可愛天真，充滿好奇心。說話俏皮可愛，常常用天真的角度看世界，讓人感到溫暖。",
}

// BackgroundRequest is the input for LLM-backed background stories.
type BackgroundRequest struct {
	CharacterName string
	Personality   string
	AgeRange      string
	Occupation    string
	Interests     []string
	TalkingStyle  string
}

// BackgroundWriter produces a short first-person background story for a
// character. Implementations wrap remote LLM services.
type BackgroundWriter interface {
	WriteBackground(ctx context.Context, req BackgroundRequest) (string, error)
}

// Generator synthesizes character profiles. The background writer is
// optional; without one a simple template story is used.
type Generator struct {
	backgrounds BackgroundWriter
	rng         *rand.Rand
}

// NewGenerator returns a Generator. writer may be nil.
func NewGenerator(writer BackgroundWriter, seed int64) *Generator {
	return &Generator{
		backgrounds: writer,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Generate builds a character profile for the given preferences. The
// returned character has no ID; persisting it is the caller's job.
func (g *Generator) Generate(ctx context.Context, userID int, profile types.DreamProfile) (*types.Character, error) {
	personality := DeterminePersonality(profile.TalkingStyle)
	name := g.pick(nameMappings[personality])
	nickname := g.pick(nicknameMappings[personality])

	gender := strings.TrimSpace(profile.Gender)
	if gender == "" {
		gender = "女"
	}

	character := &types.Character{
		UserID:        userID,
		Name:          name,
		Gender:        gender,
		Nickname:      nickname,
		Identity:      buildIdentity(profile),
		DetailSetting: buildDetailSetting(profile, personality),
		OtherSetting: types.PersonaDetails{
			Interests:          profile.Interests,
			CommunicationStyle: profile.TalkingStyle,
		},
	}

	character.OtherSetting.BackgroundStory = g.backgroundStory(ctx, name, personality, profile)
	return character, nil
}

// InitialMessage composes the character's opening greeting.
func InitialMessage(character *types.Character, profile types.DreamProfile) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("嗨！我是%s。", character.Name))
	if len(profile.Interests) > 0 {
		sb.WriteString(fmt.Sprintf("聽說你喜歡%s？我也很喜歡呢！", profile.Interests[0]))
	}
	if len(profile.Likes) > 0 {
		sb.WriteString(fmt.Sprintf("我注意到你喜歡%s，真巧！", profile.Likes[0]))
	}
	sb.WriteString("很高興認識你，今天過得怎麼樣？")
	return sb.String()
}

// DeterminePersonality maps a talking style to a persona archetype.
func DeterminePersonality(talkingStyle string) PersonalityType {
	switch {
	case containsAny(talkingStyle, "溫柔", "體貼", "細心"):
		return PersonalityGentle
	case containsAny(talkingStyle, "活潑", "開朗", "幽默"):
		return PersonalityCheerful
	case containsAny(talkingStyle, "知性", "優雅", "成熟"):
		return PersonalityIntellectual
	case containsAny(talkingStyle, "可愛", "天真", "俏皮"):
		return PersonalityCute
	default:
		return PersonalityGentle
	}
}

func buildIdentity(profile types.DreamProfile) string {
	var parts []string
	if profile.AgeRange != "" {
		parts = append(parts, profile.AgeRange+"歲")
	}
	if profile.Occupation != "" {
		parts = append(parts, profile.Occupation)
	}
	if profile.PhysicalDescription != "" {
		parts = append(parts, profile.PhysicalDescription)
	}
	if len(profile.Interests) > 0 {
		parts = append(parts, "喜歡"+profile.Interests[0])
	}
	return truncateRunes(strings.Join(parts, "，"), maxIdentityLen)
}

func buildDetailSetting(profile types.DreamProfile, personality PersonalityType) string {
	var sb strings.Builder
	sb.WriteString(personalityDescriptions[personality])
	if profile.TalkingStyle != "" {
		sb.WriteString(fmt.Sprintf("說話風格：%s。", profile.TalkingStyle))
	}
	if len(profile.Interests) > 0 {
		limit := len(profile.Interests)
		if limit > 3 {
			limit = 3
		}
		sb.WriteString(fmt.Sprintf("興趣愛好包括%s。", strings.Join(profile.Interests[:limit], "、")))
	}
	if len(profile.Likes) > 0 {
		sb.WriteString("會主動關心對方的喜好，並嘗試參與。")
	}
	sb.WriteString("【必須使用繁體中文】對話時會加入生動的動作和表情描述(用括號標註)，讓互動更真實有溫度。")
	return truncateRunes(sb.String(), maxDetailLen)
}

func (g *Generator) backgroundStory(ctx context.Context, name string, personality PersonalityType, profile types.DreamProfile) string {
	if g.backgrounds != nil {
		story, err := g.backgrounds.WriteBackground(ctx, BackgroundRequest{
			CharacterName: name,
			Personality:   personalityDescriptions[personality],
			AgeRange:      profile.AgeRange,
			Occupation:    profile.Occupation,
			Interests:     profile.Interests,
			TalkingStyle:  profile.TalkingStyle,
		})
		if err == nil && strings.TrimSpace(story) != "" {
			return truncateRunes(strings.TrimSpace(story), maxStoryLen)
		}
		if err != nil {
			slog.Warn("background story generation failed, using fallback", "error", err)
		}
	}
	return fallbackStory(profile)
}

func fallbackStory(profile types.DreamProfile) string {
	var parts []string
	if profile.Occupation != "" {
		parts = append(parts, "目前從事"+profile.Occupation+"的工作")
	}
	if len(profile.Interests) > 0 {
		parts = append(parts, "平時喜歡"+profile.Interests[0])
	}
	parts = append(parts, "希望能遇到一個真心相待的人")
	return strings.Join(parts, "，") + "。"
}

func (g *Generator) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[g.rng.Intn(len(options))]
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
