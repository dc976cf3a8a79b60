package orchestrator

import (
	"time"

	"github.com/Iron-Ham/crewpm/internal/orchestrator/phase"
	"github.com/Iron-Ham/crewpm/internal/plan"
	"github.com/Iron-Ham/crewpm/internal/session"
	"github.com/Iron-Ham/crewpm/internal/team"
)

// Stage names a step of the run, used in failure events.
type Stage string

const (
	StageSetup      Stage = "setup"
	StageTeam       Stage = "team"
	StageElaborate  Stage = "elaborate"
	StagePlan       Stage = "plan"
	StagePhase      Stage = "phase"
	StageSynthesize Stage = "synthesize"
)

// RunState is the mutable state of one run. Only the orchestrator's goroutine
// writes to it.
type RunState struct {
	Request     string
	Elaboration string
	PlanText    string
	Plan        *plan.Plan

	PM *team.Team
	// Teams maps job labels to teams; TeamOrder keeps plan order.
	Teams     map[string]*team.Team
	TeamOrder []string

	Outputs *phase.Outputs
	Results []*phase.Result

	Session  *session.RunSession
	Store    *session.Store
	Manifest *session.Manifest

	Final     string
	FinalPath string
	StartedAt time.Time
	// ResumeFrom is the 1-based phase a resumed run restarts at, 0 for a fresh run.
	ResumeFrom int
}

func newRunState(request string, s *session.RunSession) *RunState {
	return &RunState{
		Request:   request,
		Teams:     make(map[string]*team.Team),
		Outputs:   phase.NewOutputs(),
		Session:   s,
		Store:     session.NewStore(s),
		StartedAt: time.Now(),
	}
}

// Outcome is what a completed run hands back to the caller.
type Outcome struct {
	SessionID string
	Base      string
	FinalPath string
	Final     string
	// Phases lists accepted phase names in plan order.
	Phases   []string
	Attempts int
	Duration time.Duration
}
