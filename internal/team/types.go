package team

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/crewpm/internal/plan"
)

// PMJobLabel is the job label of the project-management team built before any other.
const PMJobLabel = "PM"

// PMDescription describes the project-management team.
const PMDescription = "The team that takes on the client's request, launches the project and sees it " +
	"through to completion. It is responsible for project management as a whole and brings a " +
	"background and skills that fit the request."

// Agent describes one agent: the role label it answers to, the goal it pursues
// and the persona it speaks with.
type Agent struct {
	Role    string
	Goal    string
	Persona string
}

// Team is the producer/reviewer pair for a job label.
type Team struct {
	JobLabel    string
	Description string
	Producer    Agent
	Reviewer    Agent
}

// Describe synthesises a team description from the plan's assignments for jobLabel.
func Describe(jobLabel string, assignments []plan.Assignment) string {
	roles := make([]string, 0, len(assignments))
	work := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.RoleLabel != "" {
			roles = append(roles, a.RoleLabel)
		}
		work = append(work, fmt.Sprintf("in the %s phase, %s", a.PhaseName, a.PhaseDescription))
	}
	if len(roles) == 0 {
		roles = append(roles, jobLabel)
	}
	return fmt.Sprintf("The %s team holds the roles of %s, and %s.",
		jobLabel, strings.Join(roles, " and "), strings.Join(work, "; "))
}

// RenderBlock renders the team record appended to the team file.
func RenderBlock(t *Team) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s team\n", t.JobLabel)
	fmt.Fprintf(&b, "Team description: %s\n", t.Description)
	fmt.Fprintf(&b, "%s: %s / %s\n", t.JobLabel, t.Producer.Role, t.Reviewer.Role)
	fmt.Fprintf(&b, "%s / %s\n", t.Producer.Goal, t.Reviewer.Goal)
	fmt.Fprintf(&b, "%s: %s\n", t.Producer.Role, t.Producer.Persona)
	fmt.Fprintf(&b, "%s: %s\n", t.Reviewer.Role, t.Reviewer.Persona)
	b.WriteString("\n")
	return b.String()
}
