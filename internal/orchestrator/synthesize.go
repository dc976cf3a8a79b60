package orchestrator

import (
	"context"

	"github.com/Iron-Ham/crewpm/internal/ai"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/phase"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/prompt"
	"github.com/Iron-Ham/crewpm/internal/team"
)

// Synthesizer merges accepted phase outputs into the final deliverable.
type Synthesizer struct {
	gen            ai.Generator
	includeContent bool
}

// NewSynthesizer creates a Synthesizer. With includeContent the accepted
// artifacts are embedded in the prompt; otherwise only their names are.
func NewSynthesizer(gen ai.Generator, includeContent bool) *Synthesizer {
	return &Synthesizer{gen: gen, includeContent: includeContent}
}

// Synthesize makes one generator call as reviewer over outputs in acceptance order.
func (s *Synthesizer) Synthesize(ctx context.Context, reviewer team.Agent, elaboration string, outputs []phase.Output) (string, error) {
	completed := make([]prompt.CompletedPhase, len(outputs))
	for i, o := range outputs {
		completed[i] = prompt.CompletedPhase{Name: o.Name, Content: o.Content}
	}

	text, err := prompt.NewSynthesisBuilder().Build(&prompt.Context{
		Kind:           prompt.KindSynthesize,
		Elaboration:    elaboration,
		Agent:          &reviewer,
		Completed:      completed,
		IncludeContent: s.includeContent,
	})
	if err != nil {
		return "", err
	}
	out, err := s.gen.Complete(ai.WithPurpose(ctx, ai.PurposeSynthesize), text)
	if err != nil {
		return "", crewerrors.Wrap(err, "synthesize deliverable")
	}
	return out, nil
}
