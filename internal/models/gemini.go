package models

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/easeaico/project-aiko/internal/conversation"
	"github.com/easeaico/project-aiko/internal/favorability"
	"github.com/easeaico/project-aiko/internal/prompt"
	"github.com/easeaico/project-aiko/internal/types"
)

// geminiResponder 封裝 Google Gemini 客戶端。
type geminiResponder struct {
	client  *genai.Client
	model   string
	builder *prompt.Builder
}

// NewGeminiResponder creates a responder backed by the Gemini API.
func NewGeminiResponder(ctx context.Context, modelName, apiKey string, builder *prompt.Builder) (conversation.CharacterResponder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if builder == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiResponder{
		client:  client,
		model:   modelName,
		builder: builder,
	}, nil
}

// Reply produces the character's answer for one exchange.
func (m *geminiResponder) Reply(ctx context.Context, req conversation.ReplyRequest) (string, error) {
	system, err := m.builder.BuildSystem(prompt.BuildContext{
		Character: req.Character,
		User:      req.User,
		History:   req.History,
		Level:     req.Level,
		LevelName: favorability.Level(req.Level).Name(),
	})
	if err != nil {
		return "", err
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		role := "user"
		if msg.Speaker == types.SpeakerCharacter {
			role = "model"
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(req.UserText, "user"))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, "system"),
		MaxOutputTokens:   defaultMaxReplyTokens,
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini API: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty gemini response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", fmt.Errorf("gemini response has no text")
	}
	return reply, nil
}
