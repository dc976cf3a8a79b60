package orchestrator

import (
	"context"

	"github.com/Iron-Ham/crewpm/internal/ai"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/prompt"
	"github.com/Iron-Ham/crewpm/internal/team"
)

// Elaborator turns the raw request into the PM's structured interpretation.
type Elaborator struct {
	gen ai.Generator
}

// NewElaborator creates an Elaborator.
func NewElaborator(gen ai.Generator) *Elaborator {
	return &Elaborator{gen: gen}
}

// Elaborate makes one generator call as pm. The reply is opaque text.
func (e *Elaborator) Elaborate(ctx context.Context, pm team.Agent, request string) (string, error) {
	text, err := prompt.NewElaborateBuilder().Build(&prompt.Context{
		Kind:    prompt.KindElaborate,
		Request: request,
		Agent:   &pm,
	})
	if err != nil {
		return "", err
	}
	out, err := e.gen.Complete(ai.WithPurpose(ctx, ai.PurposeElaborate), text)
	if err != nil {
		return "", crewerrors.Wrap(err, "elaborate request")
	}
	return out, nil
}
