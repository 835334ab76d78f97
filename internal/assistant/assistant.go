// Package assistant wraps the external text-generation service behind the
// narrow interface the workflow needs: iterative inquiry steps, diagnostic
// report synthesis, artifact generation, refinements and the interactive
// consultant dialogue.
//
// Generation failures never cross this boundary as errors on the report and
// artifact paths; callers receive placeholder text instead. The inquiry-step
// path degrades to a synthetic completion step so the workflow can finalize
// the inquiry rather than hang in a loading phase.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vesyn/consult/internal/models"
)

// Client is the collaborator interface consumed by the workflow layer.
type Client interface {
	// NextInquiryStep proposes the next diagnostic question, or a step with
	// IsComplete set once enough context has been gathered. It never fails:
	// on any backend or parse error the synthetic completion step is
	// returned.
	NextInquiryStep(ctx context.Context, domainTitle, subTaskLabel string, form models.FormData, history []models.InquiryHistoryItem) models.InquiryStep

	// SynthesizeReport produces the diagnostic memo from the full inquiry.
	// On failure it returns placeholder text, never an error.
	SynthesizeReport(ctx context.Context, domainTitle string, form models.FormData, history []models.InquiryHistoryItem) string

	// RefineReport reworks the report per a free-text instruction.
	RefineReport(ctx context.Context, currentReport, instruction string) string

	// GenerateArtifact produces the executable consultant instruction set.
	GenerateArtifact(ctx context.Context, domainTitle, methodology, mentalModel, subTaskLabel string, form models.FormData, report string) string

	// RefineArtifact reworks the artifact per a fixed intent or free-text
	// instruction.
	RefineArtifact(ctx context.Context, currentArtifact string, refinement models.Refinement) string

	// Reply continues the interactive consultant dialogue. Unlike the
	// generation paths this returns errors; the workflow substitutes its
	// own user-facing fallback.
	Reply(ctx context.Context, systemInstruction string, transcript []models.ChatMessage, message string) (string, error)
}

// textGenerator is the minimal backend contract: one prompt in, one
// completion out. jsonOutput asks the backend for a JSON response where the
// provider supports enforcing it.
type textGenerator interface {
	generate(ctx context.Context, systemPrompt, userPrompt string, jsonOutput bool) (string, error)
	reply(ctx context.Context, systemInstruction string, transcript []models.ChatMessage, message string) (string, error)
}

// Provider names accepted by WithProvider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Opts holds configuration options for the assistant.
type Opts struct {
	Provider string
	APIKey   string
	Model    string
}

// Option defines a configuration option for the assistant client.
type Option func(*Opts)

// WithProvider selects the generation backend ("openai" or "gemini").
func WithProvider(provider string) Option {
	return func(o *Opts) {
		o.Provider = provider
	}
}

// WithAPIKey sets the backend API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel overrides the backend's default model.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// Assistant implements Client on top of a pluggable text generator.
type Assistant struct {
	gen textGenerator
}

// NewClient creates an assistant for the configured provider. The provider
// defaults to Gemini.
func NewClient(opts ...Option) (*Assistant, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
	}
	slog.Debug("Assistant.NewClient: creating assistant", "provider", cfg.Provider, "model", cfg.Model, "apiKeySet", cfg.APIKey != "")

	var gen textGenerator
	var err error
	switch cfg.Provider {
	case ProviderOpenAI:
		gen, err = newOpenAIGenerator(cfg)
	case ProviderGemini:
		gen, err = newGeminiGenerator(cfg)
	default:
		return nil, fmt.Errorf("unknown assistant provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &Assistant{gen: gen}, nil
}

// newAssistantWithGenerator wires an Assistant to an arbitrary generator.
// Used by tests.
func newAssistantWithGenerator(gen textGenerator) *Assistant {
	return &Assistant{gen: gen}
}

// NextInquiryStep asks for the next diagnostic question and parses the JSON
// reply. Any failure degrades to the synthetic completion step.
func (a *Assistant) NextInquiryStep(ctx context.Context, domainTitle, subTaskLabel string, form models.FormData, history []models.InquiryHistoryItem) models.InquiryStep {
	prompt := buildStepPrompt(domainTitle, subTaskLabel, form, history)
	raw, err := a.gen.generate(ctx, personaPrompt, prompt, true)
	if err != nil {
		slog.Error("Assistant.NextInquiryStep: generation failed, finalizing inquiry", "error", err, "domain", domainTitle, "historyLen", len(history))
		return fallbackCompletionStep()
	}
	step, err := parseStep(raw)
	if err != nil {
		slog.Error("Assistant.NextInquiryStep: unparseable step, finalizing inquiry", "error", err, "domain", domainTitle)
		return fallbackCompletionStep()
	}
	slog.Debug("Assistant.NextInquiryStep: step received", "isComplete", step.IsComplete, "options", len(step.Options))
	return step
}

// SynthesizeReport drafts the strategic diagnostic memo.
func (a *Assistant) SynthesizeReport(ctx context.Context, domainTitle string, form models.FormData, history []models.InquiryHistoryItem) string {
	prompt := buildReportPrompt(domainTitle, form, history)
	text, err := a.gen.generate(ctx, personaPrompt, prompt, false)
	if err != nil {
		slog.Error("Assistant.SynthesizeReport: generation failed, returning placeholder", "error", err, "domain", domainTitle)
		return reportFailedText
	}
	if text == "" {
		return reportPendingText
	}
	return text
}

// RefineReport reworks the current report per the instruction.
func (a *Assistant) RefineReport(ctx context.Context, currentReport, instruction string) string {
	prompt := buildReportRefinePrompt(currentReport, instruction)
	text, err := a.gen.generate(ctx, personaPrompt, prompt, false)
	if err != nil {
		slog.Error("Assistant.RefineReport: generation failed", "error", err)
		return fmt.Sprintf(refineErrorTextFmt, err)
	}
	if text == "" {
		return reportRefineFailedText
	}
	return text
}

// GenerateArtifact produces the consultant instruction-set deliverable.
func (a *Assistant) GenerateArtifact(ctx context.Context, domainTitle, methodology, mentalModel, subTaskLabel string, form models.FormData, report string) string {
	prompt := buildArtifactPrompt(domainTitle, methodology, mentalModel, subTaskLabel, form, report)
	text, err := a.gen.generate(ctx, personaPrompt, prompt, false)
	if err != nil {
		slog.Error("Assistant.GenerateArtifact: generation failed", "error", err, "domain", domainTitle)
		return fmt.Sprintf(artifactErrorTextFmt, err)
	}
	if text == "" {
		return artifactFailedText
	}
	return text
}

// RefineArtifact reworks the artifact. Fixed intents resolve to their canned
// instruction text here, at the collaborator boundary.
func (a *Assistant) RefineArtifact(ctx context.Context, currentArtifact string, refinement models.Refinement) string {
	instruction := refinement.Instruction
	if refinement.Intent != "" {
		instruction = intentInstructions[refinement.Intent]
	}
	prompt := buildArtifactRefinePrompt(currentArtifact, instruction)
	text, err := a.gen.generate(ctx, personaPrompt, prompt, false)
	if err != nil {
		slog.Error("Assistant.RefineArtifact: generation failed", "error", err)
		return fmt.Sprintf(refineErrorTextFmt, err)
	}
	if text == "" {
		return artifactRefineFailedText
	}
	return text
}

// Reply continues the interactive consultant dialogue.
func (a *Assistant) Reply(ctx context.Context, systemInstruction string, transcript []models.ChatMessage, message string) (string, error) {
	text, err := a.gen.reply(ctx, systemInstruction, transcript, message)
	if err != nil {
		slog.Error("Assistant.Reply: dialogue turn failed", "error", err, "transcriptLen", len(transcript))
		return "", err
	}
	return text, nil
}

// parseStep extracts an InquiryStep from a model reply. Markdown fences and
// surrounding prose are tolerated; the outermost JSON object is parsed.
func parseStep(raw string) (models.InquiryStep, error) {
	text := strings.TrimSpace(raw)
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}
	var step models.InquiryStep
	if err := json.Unmarshal([]byte(text), &step); err != nil {
		return models.InquiryStep{}, fmt.Errorf("failed to parse inquiry step: %w", err)
	}
	if step.Question == "" {
		return models.InquiryStep{}, fmt.Errorf("inquiry step missing question")
	}
	return step, nil
}

// fallbackCompletionStep is the synthetic "ready to finalize" step returned
// when the backend cannot produce a usable question.
func fallbackCompletionStep() models.InquiryStep {
	return models.InquiryStep{
		Question:   stepFallbackQuestion,
		Options:    []string{stepFallbackOptionConfirm, stepFallbackOptionMore},
		IsComplete: true,
	}
}
