package prompt

import "fmt"

// ElaborateBuilder builds the PM's request elaboration prompt.
type ElaborateBuilder struct{}

// NewElaborateBuilder creates a new ElaborateBuilder.
func NewElaborateBuilder() *ElaborateBuilder {
	return &ElaborateBuilder{}
}

// Build generates the elaboration prompt.
func (b *ElaborateBuilder) Build(ctx *Context) (string, error) {
	if err := checkKind(ctx, KindElaborate); err != nil {
		return "", err
	}
	if ctx.Request == "" {
		return "", ErrEmptyRequest
	}
	return withPreamble(ctx.Agent, fmt.Sprintf(elaboratePromptTemplate, ctx.Request)), nil
}

const elaboratePromptTemplate = `Read the client's request below and fill in what it leaves unsaid so the work can be planned.

## Request (verbatim)
%s

## Write the following five sections
1. Interpreted purpose: what the client actually wants to achieve
2. Assumed constraints: cost, time, people and known issues
3. Primary deliverable: the main artifact expected and its form
4. Intermediate deliverables: artifacts needed along the way
5. Operational risks: what could go wrong and the direction of mitigation

Do not summarise or generalise the request. Work from its exact wording.
`
