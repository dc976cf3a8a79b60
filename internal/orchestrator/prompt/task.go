package prompt

import (
	"fmt"
	"strings"
)

// ProduceBuilder builds the producer's task prompt for one attempt.
type ProduceBuilder struct{}

// NewProduceBuilder creates a new ProduceBuilder.
func NewProduceBuilder() *ProduceBuilder {
	return &ProduceBuilder{}
}

// Build generates the producer prompt. When ctx.Revision is set the
// rejected artifact and its review are appended with a revise instruction.
func (b *ProduceBuilder) Build(ctx *Context) (string, error) {
	if err := checkKind(ctx, KindProduce); err != nil {
		return "", err
	}
	if ctx.Agent == nil {
		return "", ErrMissingAgent
	}
	if ctx.Phase == nil {
		return "", ErrMissingPhase
	}

	var sb strings.Builder
	sb.WriteString(Preamble(*ctx.Agent))
	fmt.Fprintf(&sb, producePromptTemplate,
		ctx.Request,
		orNone(ctx.Elaboration),
		orNone(ctx.PreviousArtifact),
		ctx.Phase.Name,
		ctx.Phase.Description,
		ctx.Phase.Name,
	)
	if ctx.Revision != nil {
		fmt.Fprintf(&sb, revisionPromptTemplate, ctx.Revision.Artifact, ctx.Revision.Review)
	}
	return sb.String(), nil
}

const producePromptTemplate = `## Original request
%s

## Elaboration of the request
%s

## Artifact of the previous phase (reference)
%s

## Current phase
%s

## Phase description
In this phase, carry out the following and create an **independent artifact** (a separate file): %s

## Requirements
- Use the previous artifact **only as background and reference**. Do not reuse its content.
- Create **new output in Markdown** that fits the purpose of this phase.
- State the artifact's file name explicitly (for example ` + "`%s.md`" + `).
- Any structure is fine, but **others must be able to read and understand it**.
`

const revisionPromptTemplate = `
## Previous artifact
%s

## Supervisor's review of the previous artifact
%s

Taking the above into account, re-check the request and revise the previous artifact.
`

// ReviewBuilder builds the reviewer's prompt for a produced artifact.
type ReviewBuilder struct{}

// NewReviewBuilder creates a new ReviewBuilder.
func NewReviewBuilder() *ReviewBuilder {
	return &ReviewBuilder{}
}

// Build generates the review prompt.
func (b *ReviewBuilder) Build(ctx *Context) (string, error) {
	if err := checkKind(ctx, KindReview); err != nil {
		return "", err
	}
	if ctx.Agent == nil {
		return "", ErrMissingAgent
	}
	if ctx.Phase == nil {
		return "", ErrMissingPhase
	}
	if ctx.Artifact == "" {
		return "", ErrNoArtifact
	}
	return Preamble(*ctx.Agent) + fmt.Sprintf(reviewPromptTemplate,
		ctx.Phase.Name, ctx.Phase.Description, ctx.Artifact), nil
}

const reviewPromptTemplate = `Review the artifact the producer submitted for the phase below.

## Phase
%s: %s

## Submitted artifact
%s

Check its quality, validity and omissions. Where it falls short, include concrete improvement proposals.
`
