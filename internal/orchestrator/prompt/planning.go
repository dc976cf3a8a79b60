package prompt

import "fmt"

// PlanBuilder builds the process plan prompt.
type PlanBuilder struct{}

// NewPlanBuilder creates a new PlanBuilder.
func NewPlanBuilder() *PlanBuilder {
	return &PlanBuilder{}
}

// Build generates the planning prompt.
func (b *PlanBuilder) Build(ctx *Context) (string, error) {
	if err := checkKind(ctx, KindPlan); err != nil {
		return "", err
	}
	if ctx.Request == "" {
		return "", ErrEmptyRequest
	}
	return withPreamble(ctx.Agent, fmt.Sprintf(planPromptTemplate, ctx.Request, orNone(ctx.Elaboration))), nil
}

const planPromptTemplate = `Design the work flow and the staffing needed to fulfil the request below.

## Request
%s

## Elaboration
%s

## Rules
- Split the work into 4 to 7 phases.
- Every phase must leave a retained artifact. Research or discussion alone is not a phase.
- The last phase produces the primary deliverable of the request.
- Phases are independent: a phase may use earlier output only as background.
- Assign exactly one job label to each phase.
- Write one phase per line and leave a blank line between phases.
- In each description, name the artifact file explicitly, in about 200 characters.

## Output format
Write the phases in flow order, each line exactly as:

phase name / description / job label / role label

Output only the phase lines.
`
