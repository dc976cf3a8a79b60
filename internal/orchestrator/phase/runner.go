package phase

import (
	"context"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/plan"
	"github.com/Iron-Ham/crewpm/internal/team"
)

// Sequence describes a plan to execute phase by phase.
type Sequence struct {
	Request     string
	Elaboration string
	Plan        *plan.Plan
	// Teams maps job labels to their teams.
	Teams map[string]*team.Team
	// Outputs receives accepted artifacts. Phases already present are
	// treated as done; execution starts at the first phase missing from it.
	Outputs *Outputs
	// OnAccepted, when set, is called after each accepted phase.
	OnAccepted func(res *Result)
}

// RunAll executes the phases of seq.Plan strictly in plan order. Each phase
// sees only the accepted output of the phase immediately before it.
func (e *Executor) RunAll(ctx context.Context, seq Sequence) ([]*Result, error) {
	phases := seq.Plan.Phases
	var results []*Result

	for i, p := range phases {
		if seq.Outputs.Has(p.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, crewerrors.Canceled(err)
		}

		var previous string
		if i > 0 {
			previous, _ = seq.Outputs.Get(phases[i-1].Name)
		}

		res, err := e.Execute(ctx, Input{
			Request:          seq.Request,
			Elaboration:      seq.Elaboration,
			Phase:            p,
			Index:            i + 1,
			Total:            len(phases),
			Team:             seq.Teams[p.JobLabel],
			PreviousArtifact: previous,
		})
		if err != nil {
			return results, err
		}
		if err := seq.Outputs.Put(p.Name, res.Accepted.Produced); err != nil {
			return results, err
		}
		results = append(results, res)
		if seq.OnAccepted != nil {
			seq.OnAccepted(res)
		}
	}
	return results, nil
}
