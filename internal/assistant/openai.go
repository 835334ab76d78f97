package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/vesyn/consult/internal/models"
)

// defaultOpenAIModel is used when no model override is configured.
const defaultOpenAIModel = openai.ChatModelGPT4oMini

// defaultTemperature matches the report/artifact generation temperature of
// the original prompt design.
const defaultTemperature = 0.7

// chatService defines the minimal interface for chat completions, so tests
// can substitute a mock for the real OpenAI service.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChatService adapts the OpenAI SDK client to chatService.
type openaiChatService struct {
	client openai.Client
}

func (s openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// openaiGenerator implements textGenerator against the OpenAI chat API.
type openaiGenerator struct {
	chat  chatService
	model openai.ChatModel
}

func newOpenAIGenerator(cfg Opts) (*openaiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	model := defaultOpenAIModel
	if cfg.Model != "" {
		model = openai.ChatModel(cfg.Model)
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("assistant.newOpenAIGenerator: client created", "model", model)
	return &openaiGenerator{chat: openaiChatService{client: client}, model: model}, nil
}

func (g *openaiGenerator) generate(ctx context.Context, systemPrompt, userPrompt string, jsonOutput bool) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(defaultTemperature),
	}
	if jsonOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	resp, err := g.chat.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *openaiGenerator) reply(ctx context.Context, systemInstruction string, transcript []models.ChatMessage, message string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemInstruction)}
	for _, m := range transcript {
		if m.Role == models.ChatRoleUser {
			messages = append(messages, openai.UserMessage(m.Text))
		} else {
			messages = append(messages, openai.AssistantMessage(m.Text))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	resp, err := g.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model:       g.model,
		Messages:    messages,
		Temperature: openai.Float(defaultTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
