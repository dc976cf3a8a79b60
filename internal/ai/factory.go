package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/crewpm/internal/config"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/logging"
)

// ErrUnknownProvider is returned when the configured provider is unsupported.
var ErrUnknownProvider = crewerrors.New("unknown generator provider")

// systemPrompt keeps replies in the requested Markdown form.
const systemPrompt = "You are a member of a project team. Follow the instructions exactly and answer in Markdown."

// NewBackend builds the raw provider client selected by cfg.
func NewBackend(ctx context.Context, cfg config.GeneratorConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAI(OpenAIConfig{
			APIKey:      cfg.APIKey(),
			Model:       cfg.ResolvedModel(),
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			System:      systemPrompt,
		})
	case config.ProviderGemini:
		return NewGemini(ctx, GeminiConfig{
			APIKey:      cfg.APIKey(),
			Model:       cfg.ResolvedModel(),
			Temperature: cfg.Temperature,
			System:      systemPrompt,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// Wrap applies the standard middleware stack to a backend: per-call timeout,
// client-side rate limit, retry with backoff, then logging and metrics.
func Wrap(backend Generator, cfg config.GeneratorConfig, logger *logging.Logger, observer CallObserver) Generator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if d, ok := backend.(Describer); ok {
		logger = logger.With("provider", d.Provider(), "model", d.Model())
	}
	return Chain(backend,
		WithTimeout(cfg.Timeout()),
		WithRateLimit(PerMinuteLimiter(cfg.RequestsPerMinute)),
		WithRetry(RetryPolicy{
			MaxTries:        uint(max(cfg.MaxTries, 1)),
			InitialInterval: cfg.RetryInitial(),
			MaxInterval:     30 * time.Second,
			OnRetry: func(ctx context.Context, err error, wait time.Duration) {
				logger.WithPurpose(string(PurposeFrom(ctx))).Info("retrying generator call",
					"wait_ms", wait.Milliseconds(), "error", err.Error())
			},
		}),
		Instrument(logger, observer),
	)
}

// NewFromConfig builds the configured backend wrapped in the standard middleware.
func NewFromConfig(ctx context.Context, cfg config.GeneratorConfig, logger *logging.Logger, observer CallObserver) (Generator, error) {
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(backend, cfg, logger, observer), nil
}
