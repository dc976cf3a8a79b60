package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
)

const providerOpenAI = "openai"

// OpenAIConfig configures an OpenAIGenerator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // optional, for OpenAI-compatible endpoints
	Temperature float32
	// System is sent as the system message. Empty sends none.
	System string
}

// OpenAIGenerator calls the chat completions API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	system      string
}

// NewOpenAI creates an OpenAIGenerator.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, crewerrors.NewGenerationError("OpenAI API key not set", crewerrors.ErrMissingCredential).
			WithProvider(providerOpenAI)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		system:      cfg.System,
	}, nil
}

// Provider returns "openai".
func (g *OpenAIGenerator) Provider() string { return providerOpenAI }

// Model returns the chat model name.
func (g *OpenAIGenerator) Model() string { return g.model }

// Complete sends prompt as a single user message and returns the first choice.
func (g *OpenAIGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if g.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: g.system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", g.wrap(ctx, "chat completion failed", err, openAIRetryable(err))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", g.wrap(ctx, "chat completion returned no content", crewerrors.ErrEmptyCompletion, true)
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) wrap(ctx context.Context, msg string, err error, retryable bool) error {
	return crewerrors.NewGenerationError(msg, err).
		WithProvider(providerOpenAI).
		WithModel(g.model).
		WithPurpose(string(PurposeFrom(ctx))).
		WithRetryable(retryable)
}

// openAIRetryable reports whether a client error is worth another try:
// rate limits, server errors and transport failures without a status.
func openAIRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || retryableStatus(reqErr.HTTPStatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
