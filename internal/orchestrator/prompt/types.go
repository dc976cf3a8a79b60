// Package prompt builds the prompts sent to the generator at every step of a
// crewpm run. Builders are pure: they read a Context and return text, never
// calling the generator themselves.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Iron-Ham/crewpm/internal/team"
)

// Builder defines the interface for building prompts from context.
type Builder interface {
	// Build generates a prompt string from the given context.
	// Returns an error if the context is invalid for this prompt type.
	Build(ctx *Context) (string, error)
}

// Kind identifies the pipeline step a prompt is built for.
type Kind string

const (
	KindElaborate  Kind = "elaborate"
	KindPlan       Kind = "plan"
	KindProduce    Kind = "produce"
	KindReview     Kind = "review"
	KindJudge      Kind = "judge"
	KindSynthesize Kind = "synthesize"
)

// Context provides all the information needed to build any prompt type.
// Not all fields are required for every prompt type; builders validate
// the fields they need.
type Context struct {
	// Kind identifies which prompt is being built
	Kind Kind

	// Request is the user's request, passed through verbatim
	Request string

	// Elaboration is the PM's structured interpretation of the request
	Elaboration string

	// Agent is the agent that will answer the prompt
	Agent *team.Agent

	// Phase describes the phase being worked on
	Phase *PhaseInfo

	// PreviousArtifact is the accepted artifact of the immediately preceding phase
	PreviousArtifact string

	// Revision carries the rejected attempt being revised, if any
	Revision *RevisionInfo

	// Artifact is the produced artifact under review or judgement
	Artifact string

	// Review is the reviewer's assessment of Artifact
	Review string

	// Completed lists accepted phase outputs in plan order
	Completed []CompletedPhase

	// IncludeContent embeds completed artifacts in the synthesis prompt
	IncludeContent bool
}

// PhaseInfo identifies a phase.
type PhaseInfo struct {
	Name        string
	Description string
	// Index is 1-based.
	Index int
	Total int
}

// RevisionInfo is the rejected attempt a producer revises.
type RevisionInfo struct {
	Artifact string
	Review   string
}

// CompletedPhase is an accepted phase output.
type CompletedPhase struct {
	Name    string
	Content string
}

// Errors returned by builders when the context is incomplete.
var (
	ErrNilContext   = errors.New("prompt context is nil")
	ErrInvalidKind  = errors.New("prompt kind does not match builder")
	ErrEmptyRequest = errors.New("request is empty")
	ErrMissingAgent = errors.New("agent is required")
	ErrMissingPhase = errors.New("phase is required")
	ErrNoArtifact   = errors.New("artifact is required")
	ErrNoCompleted  = errors.New("no completed phases")
)

// noneText stands in for an absent prior artifact.
const noneText = "(none)"

// For returns the builder for kind.
func For(kind Kind) (Builder, error) {
	switch kind {
	case KindElaborate:
		return NewElaborateBuilder(), nil
	case KindPlan:
		return NewPlanBuilder(), nil
	case KindProduce:
		return NewProduceBuilder(), nil
	case KindReview:
		return NewReviewBuilder(), nil
	case KindJudge:
		return NewJudgeBuilder(), nil
	case KindSynthesize:
		return NewSynthesisBuilder(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
}

// Preamble renders the agent's role, goal and persona ahead of a task.
func Preamble(agent team.Agent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s.\n", agent.Role)
	if agent.Goal != "" {
		fmt.Fprintf(&sb, "Your goal: %s\n", agent.Goal)
	}
	if agent.Persona != "" {
		fmt.Fprintf(&sb, "Your background:\n%s\n", agent.Persona)
	}
	sb.WriteString("\n")
	return sb.String()
}

func checkKind(ctx *Context, want Kind) error {
	if ctx == nil {
		return ErrNilContext
	}
	if ctx.Kind != want {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidKind, want, ctx.Kind)
	}
	return nil
}

func withPreamble(agent *team.Agent, body string) string {
	if agent == nil {
		return body
	}
	return Preamble(*agent) + body
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return noneText
	}
	return s
}
