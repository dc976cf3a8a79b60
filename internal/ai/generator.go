// Package ai provides the text generation boundary used by every agent in a
// crewpm run: a single Complete call per prompt, concrete OpenAI and Gemini
// backends, and middleware for timeouts, retries, rate limiting and
// instrumentation.
package ai

import (
	"context"
)

// Generator turns a prompt into generated text. Implementations must be safe
// for concurrent use; a call blocks until the reply is complete or ctx ends.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts an ordinary function to the Generator interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Complete calls f(ctx, prompt).
func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Describer is implemented by backends that can name their provider and model.
type Describer interface {
	Provider() string
	Model() string
}

// Middleware wraps a Generator with additional behavior.
type Middleware func(Generator) Generator

// Chain applies middleware to g. The first middleware is the innermost wrapper.
func Chain(g Generator, mws ...Middleware) Generator {
	for _, mw := range mws {
		g = mw(g)
	}
	return g
}

// Purpose names the pipeline step a generator call serves.
type Purpose string

const (
	PurposePersona    Purpose = "persona"
	PurposeElaborate  Purpose = "elaborate"
	PurposePlan       Purpose = "plan"
	PurposeProduce    Purpose = "produce"
	PurposeReview     Purpose = "review"
	PurposeJudge      Purpose = "judge"
	PurposeSynthesize Purpose = "synthesize"
	PurposeUnknown    Purpose = "unknown"
)

type purposeKey struct{}

// WithPurpose tags ctx with the purpose of the next generator call.
func WithPurpose(ctx context.Context, p Purpose) context.Context {
	return context.WithValue(ctx, purposeKey{}, p)
}

// PurposeFrom returns the purpose stored in ctx, or PurposeUnknown.
func PurposeFrom(ctx context.Context) Purpose {
	if p, ok := ctx.Value(purposeKey{}).(Purpose); ok {
		return p
	}
	return PurposeUnknown
}
