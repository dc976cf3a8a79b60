package prompt

import "fmt"

// JudgeBuilder builds the PM's completion verdict prompt.
type JudgeBuilder struct{}

// NewJudgeBuilder creates a new JudgeBuilder.
func NewJudgeBuilder() *JudgeBuilder {
	return &JudgeBuilder{}
}

// Build generates the verdict prompt. The agent preamble is optional.
func (b *JudgeBuilder) Build(ctx *Context) (string, error) {
	if err := checkKind(ctx, KindJudge); err != nil {
		return "", err
	}
	if ctx.Artifact == "" {
		return "", ErrNoArtifact
	}
	return withPreamble(ctx.Agent, fmt.Sprintf(judgePromptTemplate, ctx.Artifact, orNone(ctx.Review))), nil
}

const judgePromptTemplate = `Read the artifact and its review below and answer YES or NO: is this step sufficiently complete?

---
Producer's artifact:
%s

Review:
%s

---
Based on the above, decide whether the work should move on to the next step.
---

Answer in this format:
Verdict: YES or NO
Reason: (about 100 characters)
`
