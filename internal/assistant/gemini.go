package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vesyn/consult/internal/models"
	"google.golang.org/genai"
)

// defaultGeminiModel is the Gemini model used when no override is set.
const defaultGeminiModel = "gemini-3-flash-preview"

// stepTemperature is the lower temperature used for structured inquiry-step
// generation.
const stepTemperature = 0.5

// geminiGenerator implements textGenerator against the Gemini API.
type geminiGenerator struct {
	client *genai.Client
	model  string
}

func newGeminiGenerator(cfg Opts) (*geminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not set")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	slog.Debug("assistant.newGeminiGenerator: client created", "model", model)
	return &geminiGenerator{client: client, model: model}, nil
}

func (g *geminiGenerator) generate(ctx context.Context, systemPrompt, userPrompt string, jsonOutput bool) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](defaultTemperature),
	}
	if jsonOutput {
		config.Temperature = genai.Ptr[float32](stepTemperature)
		config.ResponseMIMEType = "application/json"
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), config)
	if err != nil {
		return "", fmt.Errorf("Gemini generation failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no response text returned")
	}
	return text, nil
}

// geminiRole maps a stored chat role onto the typed role the Gemini SDK
// expects for content entries.
func geminiRole(r string) genai.Role {
	if r == models.ChatRoleUser {
		return genai.RoleUser
	}
	return genai.RoleModel
}

func (g *geminiGenerator) reply(ctx context.Context, systemInstruction string, transcript []models.ChatMessage, message string) (string, error) {
	var contents []*genai.Content
	for _, m := range transcript {
		contents = append(contents, genai.NewContentFromText(m.Text, geminiRole(m.Role)))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](defaultTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("Gemini dialogue turn failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no response text returned")
	}
	return text, nil
}
