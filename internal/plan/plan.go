// Package plan turns the PM's textual process plan into ordered phases and
// per-job-label groups of role assignments.
//
// A plan is plain text with one phase record per line:
//
//	phase name / description / job label / role label
//
// Lines that do not carry at least three separators, or whose name or job
// label is empty, are dropped and reported rather than treated as errors.
package plan

import (
	"fmt"
	"regexp"
	"strings"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
)

// Separator delimits the fields of a phase record.
const Separator = "/"

// minSeparators is the number of separators a phase record must contain.
const minSeparators = 3

// listMarker matches a leading Markdown bullet or ordinal on the name field.
var listMarker = regexp.MustCompile(`^(?:[-*+•]|\d+[.)])\s+`)

// Phase is one unit of work in the plan.
type Phase struct {
	Name        string
	Description string
	JobLabel    string
	RoleLabel   string
	// Line is the 1-based line number in the plan text.
	Line int
}

// Assignment is a phase as seen by the team that owns its job label.
type Assignment struct {
	PhaseName        string
	PhaseDescription string
	RoleLabel        string
}

// DroppedLine records a non-empty line that was not a usable phase record.
type DroppedLine struct {
	Line   int
	Text   string
	Reason string
}

// Plan is the parsed form of a process plan.
type Plan struct {
	// Phases in plan order.
	Phases []Phase
	// Groups maps each job label to its assignments in plan order.
	Groups map[string][]Assignment
	// JobOrder lists job labels in order of first appearance.
	JobOrder []string
	// Dropped lists ignored non-empty lines.
	Dropped []DroppedLine
	// NonEmptyLines counts all non-blank lines of the source text.
	NonEmptyLines int
}

// Parse splits text into phase records. It never fails; use Validate to
// check the result. Parse is pure: equal inputs yield equal plans.
func Parse(text string) *Plan {
	p := &Plan{Groups: make(map[string][]Assignment)}

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		p.NonEmptyLines++
		lineNo := i + 1

		if strings.Count(line, Separator) < minSeparators {
			p.Dropped = append(p.Dropped, DroppedLine{Line: lineNo, Text: line, Reason: "fewer than 3 separators"})
			continue
		}

		fields := strings.SplitN(line, Separator, 4)
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}
		name := strings.TrimSpace(listMarker.ReplaceAllString(fields[0], ""))
		phase := Phase{
			Name:        name,
			Description: fields[1],
			JobLabel:    fields[2],
			RoleLabel:   fields[3],
			Line:        lineNo,
		}

		switch {
		case phase.Name == "":
			p.Dropped = append(p.Dropped, DroppedLine{Line: lineNo, Text: line, Reason: "empty phase name"})
			continue
		case phase.JobLabel == "":
			p.Dropped = append(p.Dropped, DroppedLine{Line: lineNo, Text: line, Reason: "empty job label"})
			continue
		}

		p.Phases = append(p.Phases, phase)
		if _, ok := p.Groups[phase.JobLabel]; !ok {
			p.JobOrder = append(p.JobOrder, phase.JobLabel)
		}
		p.Groups[phase.JobLabel] = append(p.Groups[phase.JobLabel], Assignment{
			PhaseName:        phase.Name,
			PhaseDescription: phase.Description,
			RoleLabel:        phase.RoleLabel,
		})
	}

	return p
}

// Validate rejects plans without phases and plans that reuse a phase name.
func Validate(p *Plan) error {
	if p == nil || len(p.Phases) == 0 {
		return crewerrors.ErrEmptyPlan
	}
	seen := make(map[string]int, len(p.Phases))
	for _, ph := range p.Phases {
		if first, ok := seen[ph.Name]; ok {
			return fmt.Errorf("%w: %q on lines %d and %d", crewerrors.ErrDuplicatePhase, ph.Name, first, ph.Line)
		}
		seen[ph.Name] = ph.Line
	}
	return nil
}

// Names returns the phase names in plan order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Phases))
	for i, ph := range p.Phases {
		names[i] = ph.Name
	}
	return names
}

// DroppedRatio returns the share of non-empty lines that were dropped.
func (p *Plan) DroppedRatio() float64 {
	if p.NonEmptyLines == 0 {
		return 0
	}
	return float64(len(p.Dropped)) / float64(p.NonEmptyLines)
}

// CountNonEmptyLines counts the lines of text that are not blank.
func CountNonEmptyLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
