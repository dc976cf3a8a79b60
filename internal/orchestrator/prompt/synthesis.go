package prompt

import (
	"fmt"
	"strings"
)

// SynthesisBuilder builds the final integration prompt.
type SynthesisBuilder struct{}

// NewSynthesisBuilder creates a new SynthesisBuilder.
func NewSynthesisBuilder() *SynthesisBuilder {
	return &SynthesisBuilder{}
}

// Build generates the synthesis prompt from the completed phases in order.
func (b *SynthesisBuilder) Build(ctx *Context) (string, error) {
	if err := checkKind(ctx, KindSynthesize); err != nil {
		return "", err
	}
	if len(ctx.Completed) == 0 {
		return "", ErrNoCompleted
	}

	names := make([]string, len(ctx.Completed))
	for i, c := range ctx.Completed {
		names[i] = fmt.Sprintf("%d. %s", i+1, c.Name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, synthesisPromptTemplate, orNone(ctx.Elaboration), strings.Join(names, "\n"))
	if ctx.IncludeContent {
		sb.WriteString("\n## Phase artifacts\n")
		for _, c := range ctx.Completed {
			fmt.Fprintf(&sb, "\n### %s\n%s\n", c.Name, c.Content)
		}
	}
	return withPreamble(ctx.Agent, sb.String()), nil
}

const synthesisPromptTemplate = `Integrate the artifacts of each phase below into one finished deliverable for the request.

---
Request:
%s

---
Completed phases:
%s
`
