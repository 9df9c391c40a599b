// Package models 提供各家模型提供方的適配器實現。
package models

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/easeaico/project-aiko/internal/conversation"
	"github.com/easeaico/project-aiko/internal/favorability"
	"github.com/easeaico/project-aiko/internal/prompt"
	"github.com/easeaico/project-aiko/internal/types"
)

const defaultMaxReplyTokens = 1024

// openaiResponder 封裝 OpenAI 兼容的聊天客戶端。
type openaiResponder struct {
	client             *openai.Client
	model              string
	builder            *prompt.Builder
	versionHeaderValue string
}

// NewOpenAIResponder creates a responder backed by the OpenAI API.
func NewOpenAIResponder(modelName, apiKey string, builder *prompt.Builder) (conversation.CharacterResponder, error) {
	return newOpenAICompatResponder(modelName, apiKey, "", "openai-go", builder)
}

// NewGrokResponder creates a responder backed by the x.ai API.
func NewGrokResponder(modelName, apiKey string, builder *prompt.Builder) (conversation.CharacterResponder, error) {
	return newOpenAICompatResponder(modelName, apiKey, "https://api.x.ai/v1", "grok-go", builder)
}

// NewOpenRouterResponder creates a responder backed by OpenRouter.
func NewOpenRouterResponder(modelName, apiKey string, builder *prompt.Builder) (conversation.CharacterResponder, error) {
	return newOpenAICompatResponder(modelName, apiKey, "https://openrouter.ai/api/v1", "openrouter-go", builder)
}

func newOpenAICompatResponder(modelName, apiKey, baseURL, agent string, builder *prompt.Builder) (conversation.CharacterResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if builder == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	headerValue := fmt.Sprintf("%s/%s go/%s",
		agent, "1.0.0", strings.TrimPrefix(runtime.Version(), "go"))

	return &openaiResponder{
		client:             &client,
		model:              modelName,
		builder:            builder,
		versionHeaderValue: headerValue,
	}, nil
}

// Reply produces the character's answer for one exchange.
func (m *openaiResponder) Reply(ctx context.Context, req conversation.ReplyRequest) (string, error) {
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

	params := openai.ChatCompletionNewParams{
		Model:     m.model,
		Messages:  buildChatMessages(system, req.History, req.UserText),
		MaxTokens: openai.Int(defaultMaxReplyTokens),
	}

	resp, err := m.client.Chat.Completions.New(ctx, params,
		option.WithHeader("user-agent", m.versionHeaderValue))
	if err != nil {
		return "", fmt.Errorf("failed to call chat API: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("chat response has no content")
	}
	return reply, nil
}

// buildChatMessages converts the exchange into OpenAI chat messages.
func buildChatMessages(system string, history []types.Message, userText string) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, msg := range history {
		if msg.Speaker == types.SpeakerCharacter {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userText))
	return messages
}
