package team

import (
	"bytes"
	"context"
	"text/template"

	"github.com/Iron-Ham/crewpm/internal/ai"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
)

// personaTemplate asks for a character sketch of at least 500 characters.
const personaTemplate = `Describe, concretely and in at least 500 characters, a person suited to the following role.
- Name: {{.Name}}
- Role: {{.RoleLabel}}
- Description: {{.RoleDescription}}
- Client request: {{.Request}}
`

var personaTmpl = template.Must(template.New("persona").Parse(personaTemplate))

// Responsibility sentences appended to generated personas.
const (
	producerResponsibility = "This agent takes responsibility for its role and is committed to reliably delivering a high-quality artifact."
	reviewerResponsibility = "As the supervising reviewer, this agent takes responsibility for its review role and is committed to " +
		"raising the quality of the artifact the team submits."
)

// PersonaFactory generates persona text with one generator call.
type PersonaFactory struct {
	gen ai.Generator
}

// NewPersonaFactory creates a PersonaFactory.
func NewPersonaFactory(gen ai.Generator) *PersonaFactory {
	return &PersonaFactory{gen: gen}
}

// PersonaPrompt renders the persona request for one agent.
func PersonaPrompt(name, roleLabel, roleDescription, request string) string {
	var buf bytes.Buffer
	_ = personaTmpl.Execute(&buf, struct {
		Name, RoleLabel, RoleDescription, Request string
	}{name, roleLabel, roleDescription, request})
	return buf.String()
}

// Create returns the generated persona. The reply is not length-checked.
func (f *PersonaFactory) Create(ctx context.Context, name, roleLabel, roleDescription, request string) (string, error) {
	out, err := f.gen.Complete(ai.WithPurpose(ctx, ai.PurposePersona),
		PersonaPrompt(name, roleLabel, roleDescription, request))
	if err != nil {
		return "", crewerrors.Wrapf(err, "persona for %s", name)
	}
	return out, nil
}
