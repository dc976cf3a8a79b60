package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
)

const providerGemini = "gemini"

// GeminiConfig configures a GeminiGenerator.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	System      string
}

// GeminiGenerator calls the Gemini API through the Google Gen AI SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGemini creates a GeminiGenerator.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, crewerrors.NewGenerationError("Gemini API key not set", crewerrors.ErrMissingCredential).
			WithProvider(providerGemini)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, crewerrors.NewGenerationError("failed to create Gemini client", err).WithProvider(providerGemini)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	genCfg := &genai.GenerateContentConfig{}
	if cfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(cfg.Temperature)
	}
	if cfg.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(cfg.System, genai.RoleUser)
	}
	return &GeminiGenerator{client: client, model: model, config: genCfg}, nil
}

// Provider returns "gemini".
func (g *GeminiGenerator) Provider() string { return providerGemini }

// Model returns the Gemini model name.
func (g *GeminiGenerator) Model() string { return g.model }

// Complete generates content for prompt and returns the concatenated text parts.
func (g *GeminiGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", g.wrap(ctx, "generate content failed", err, geminiRetryable(err))
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", g.wrap(ctx, "generate content returned no text", crewerrors.ErrEmptyCompletion, true)
	}
	return text, nil
}

func (g *GeminiGenerator) wrap(ctx context.Context, msg string, err error, retryable bool) error {
	return crewerrors.NewGenerationError(msg, err).
		WithProvider(providerGemini).
		WithModel(g.model).
		WithPurpose(string(PurposeFrom(ctx))).
		WithRetryable(retryable)
}

func geminiRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return retryableStatus(apiErrPtr.Code)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
