package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/easeaico/project-aiko/internal/persona"
	"github.com/easeaico/project-aiko/internal/prompt"
	"github.com/easeaico/project-aiko/internal/utils"
)

// backgroundOutput is the structured story returned by the model.
type backgroundOutput struct {
	BackgroundStory string `json:"background_story"`
}

// BackgroundWriter generates character background stories through an
// OpenAI-compatible endpoint, constrained to a JSON schema so the story
// comes back machine-readable.
type BackgroundWriter struct {
	client *openai.Client
	model  string
	schema *jsonschema.Schema
}

// NewBackgroundWriter returns a BackgroundWriter. baseURL may be empty
// for the default OpenAI endpoint.
func NewBackgroundWriter(modelName, apiKey, baseURL string) (*BackgroundWriter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	schema, err := jsonschema.For[backgroundOutput](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build output schema: %w", err)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &BackgroundWriter{
		client: &client,
		model:  modelName,
		schema: schema,
	}, nil
}

// WriteBackground implements persona.BackgroundWriter.
func (w *BackgroundWriter) WriteBackground(ctx context.Context, req persona.BackgroundRequest) (string, error) {
	promptText, err := prompt.BuildBackground(
		req.CharacterName,
		req.Personality,
		req.AgeRange,
		req.Occupation,
		req.TalkingStyle,
		req.Interests,
	)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model: w.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("你是一位擅長創作角色背景故事的作家，只輸出 JSON。"),
			openai.UserMessage(promptText),
		},
		MaxTokens: openai.Int(300),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "background_story",
					Schema: w.schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := w.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to call chat API: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}

	var output backgroundOutput
	if err := utils.ExtractJSONObject(resp.Choices[0].Message.Content, &output); err != nil {
		return "", err
	}
	story := strings.TrimSpace(output.BackgroundStory)
	if story == "" {
		return "", fmt.Errorf("missing background story")
	}
	return story, nil
}
