// Package types holds the shared domain types of the companion backend.
package types

import "time"

// Speaker values recorded on messages.
const (
	SpeakerUser      = "user"
	SpeakerCharacter = "character"
)

// User is a registered chat user.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Character is a persisted companion profile synthesized from user preferences.
type Character struct {
	ID            int            `json:"id"`
	UserID        int            `json:"user_id"`
	Name          string         `json:"name"`
	Gender        string         `json:"gender"`
	Nickname      string         `json:"nickname"`
	Identity      string         `json:"identity"`
	DetailSetting string         `json:"detail_setting"`
	OtherSetting  PersonaDetails `json:"other_setting"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// PersonaDetails is the structured portion of a character profile.
type PersonaDetails struct {
	BackgroundStory    string   `json:"background_story"`
	Interests          []string `json:"interests"`
	CommunicationStyle string   `json:"communication_style"`
}

// DreamProfile captures the user's preferences for a companion.
type DreamProfile struct {
	Gender              string   `json:"gender"`
	AgeRange            string   `json:"age_range"`
	Occupation          string   `json:"occupation"`
	PhysicalDescription string   `json:"physical_description"`
	TalkingStyle        string   `json:"talking_style"`
	Interests           []string `json:"interests"`
	Likes               []string `json:"likes"`
	Dislikes            []string `json:"dislikes"`
	HowWeMet            string   `json:"how_we_met"`
	SpecialMoment       string   `json:"special_moment"`
}

// Conversation binds a user and a character. Created once when the
// character is generated, never deleted in normal operation.
type Conversation struct {
	ID          int       `json:"id"`
	SessionID   string    `json:"session_id"`
	UserID      int       `json:"user_id"`
	CharacterID int       `json:"character_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is one immutable conversation entry. FavorabilityLevel is a
// snapshot of the level in effect when the message was written, so
// history keeps the emotional context it was sent under.
type Message struct {
	ID                int       `json:"id"`
	ConversationID    int       `json:"conversation_id"`
	Speaker           string    `json:"speaker"`
	SpeakerName       string    `json:"speaker_name"`
	Content           string    `json:"content"`
	FavorabilityLevel int       `json:"favorability_level"`
	CreatedAt         time.Time `json:"created_at"`
}
