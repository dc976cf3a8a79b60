package phase

import (
	"context"
	"time"

	"github.com/Iron-Ham/crewpm/internal/ai"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/event"
	"github.com/Iron-Ham/crewpm/internal/logging"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/judge"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/prompt"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/retry"
	"github.com/Iron-Ham/crewpm/internal/plan"
	"github.com/Iron-Ham/crewpm/internal/team"
)

// DefaultMaxAttempts caps attempts per phase when no option overrides it.
const DefaultMaxAttempts = 5

// Step file slots.
const (
	SlotArtifact = 0
	SlotReview   = 1
)

// StepWriter persists the accepted artifact and review of a phase.
type StepWriter interface {
	// WriteStep stores content for the 1-based phase index and slot and
	// returns the path written.
	WriteStep(index, slot int, content string) (string, error)
}

// Attempt is the record of one produce -> review -> judge cycle.
type Attempt struct {
	Number    int
	Produced  string
	Review    string
	Verdict   judge.Verdict
	Ambiguous bool
	Rationale string
	Duration  time.Duration
}

// Input is everything an executor needs to run one phase.
type Input struct {
	Request     string
	Elaboration string
	Phase       plan.Phase
	// Index is the 1-based position of Phase in the plan.
	Index int
	Total int
	Team  *team.Team
	// PreviousArtifact is the accepted output of phase Index-1, empty for the first phase.
	PreviousArtifact string
}

// Result describes an accepted phase.
type Result struct {
	Phase        string
	Index        int
	Accepted     Attempt
	Attempts     []Attempt
	History      []Transition
	ArtifactPath string
	ReviewPath   string
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxAttempts caps the attempts per phase. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithBus publishes progress events on bus.
func WithBus(bus *event.Bus) Option {
	return func(e *Executor) {
		e.bus = bus
	}
}

// WithStepWriter persists accepted steps through w.
func WithStepWriter(w StepWriter) Option {
	return func(e *Executor) {
		e.steps = w
	}
}

// WithRetryManager records attempt bookkeeping in m.
func WithRetryManager(m *retry.Manager) Option {
	return func(e *Executor) {
		if m != nil {
			e.retries = m
		}
	}
}

// WithLogger sets the executor's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Executor runs phases through the attempt cycle.
type Executor struct {
	gen         ai.Generator
	judge       *judge.Judge
	maxAttempts int
	bus         *event.Bus
	steps       StepWriter
	retries     *retry.Manager
	logger      *logging.Logger
}

// NewExecutor creates an Executor that generates with gen and decides with j.
func NewExecutor(gen ai.Generator, j *judge.Judge, opts ...Option) *Executor {
	e := &Executor{
		gen:         gen,
		judge:       j,
		maxAttempts: DefaultMaxAttempts,
		retries:     retry.NewManager(),
		logger:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bus == nil {
		e.bus = event.NewBus(e.logger)
	}
	return e
}

// MaxAttempts returns the per-phase attempt cap.
func (e *Executor) MaxAttempts() int {
	return e.maxAttempts
}

// Retries returns the attempt bookkeeping.
func (e *Executor) Retries() *retry.Manager {
	return e.retries
}

// Execute runs in.Phase until an attempt is accepted, the attempt cap is
// reached, or ctx ends. Only the accepted attempt's artifact is returned as
// the phase output; rejected attempts survive solely as revision context.
func (e *Executor) Execute(ctx context.Context, in Input) (*Result, error) {
	name := in.Phase.Name
	ref := event.PhaseRef{Index: in.Index, Total: in.Total, Name: name}
	logger := e.logger.WithPhase(name)

	if in.Team == nil {
		return nil, crewerrors.NewPhaseError("no team for job label "+in.Phase.JobLabel, crewerrors.ErrUnknownJobLabel).
			WithPhase(name, in.Index)
	}

	m := NewMachine()
	e.retries.GetOrCreateState(name, e.maxAttempts)
	e.bus.Publish(event.NewPhaseStartedEvent(ref, in.Phase.JobLabel, in.Phase.Description))
	logger.Info("phase started", "step", in.Index, "job_label", in.Phase.JobLabel)

	phaseInfo := &prompt.PhaseInfo{
		Name:        name,
		Description: in.Phase.Description,
		Index:       in.Index,
		Total:       in.Total,
	}

	var (
		attempts []Attempt
		revision *prompt.RevisionInfo
	)
	for n := 1; n <= e.maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			e.fail(m, "canceled")
			return nil, crewerrors.Canceled(err)
		}

		a, err := e.attempt(ctx, m, in, phaseInfo, revision)
		if err != nil {
			e.fail(m, err.Error())
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, crewerrors.Canceled(ctxErr)
			}
			return nil, crewerrors.NewPhaseError("attempt failed", err).WithPhase(name, in.Index).WithAttempt(n)
		}
		attempts = append(attempts, a)
		e.retries.RecordAttempt(name, a.Verdict == judge.Accept, a.Rationale)
		e.bus.Publish(event.NewVerdictRenderedEvent(ref, n, a.Verdict == judge.Accept, a.Ambiguous, a.Rationale))

		if a.Verdict == judge.Accept {
			if err := m.TransitionTo(StateAccepted, a.Rationale); err != nil {
				return nil, err
			}
			res := &Result{Phase: name, Index: in.Index, Accepted: a, Attempts: attempts}
			if err := e.persist(res); err != nil {
				return nil, crewerrors.NewPhaseError("persist accepted step", err).WithPhase(name, in.Index).WithAttempt(n)
			}
			res.History = m.History()
			e.bus.Publish(event.NewPhaseAcceptedEvent(ref, n, res.ArtifactPath))
			logger.Info("phase accepted", "step", in.Index, "attempts", n)
			return res, nil
		}

		if err := m.TransitionTo(StateRejected, a.Rationale); err != nil {
			return nil, err
		}
		revision = &prompt.RevisionInfo{Artifact: a.Produced, Review: a.Review}
		if n < e.maxAttempts {
			e.bus.Publish(event.NewPhaseRetryingEvent(ref, n+1, e.maxAttempts))
			logger.WithAttempt(n).Info("phase retrying", "rationale", a.Rationale)
		}
	}

	e.fail(m, "attempts exhausted")
	logger.Error("phase exhausted", "attempts", e.maxAttempts)
	return nil, crewerrors.NewPhaseError("no attempt was accepted", crewerrors.ErrPhaseExhausted).
		WithPhase(name, in.Index).
		WithAttempt(e.maxAttempts)
}

// attempt runs one produce -> review -> judge cycle and leaves m in StateJudging.
func (e *Executor) attempt(ctx context.Context, m *Machine, in Input, info *prompt.PhaseInfo, revision *prompt.RevisionInfo) (Attempt, error) {
	start := time.Now()
	if err := m.TransitionTo(StateProducing, ""); err != nil {
		return Attempt{}, err
	}
	n := m.Attempt()
	ref := event.PhaseRef{Index: in.Index, Total: in.Total, Name: in.Phase.Name}

	producePrompt, err := prompt.NewProduceBuilder().Build(&prompt.Context{
		Kind:             prompt.KindProduce,
		Request:          in.Request,
		Elaboration:      in.Elaboration,
		Agent:            &in.Team.Producer,
		Phase:            info,
		PreviousArtifact: in.PreviousArtifact,
		Revision:         revision,
	})
	if err != nil {
		return Attempt{}, err
	}
	produced, err := e.gen.Complete(ai.WithPurpose(ctx, ai.PurposeProduce), producePrompt)
	if err != nil {
		return Attempt{}, err
	}
	e.bus.Publish(event.NewArtifactProducedEvent(ref, n, produced))

	if err := m.TransitionTo(StateReviewing, ""); err != nil {
		return Attempt{}, err
	}
	reviewPrompt, err := prompt.NewReviewBuilder().Build(&prompt.Context{
		Kind:     prompt.KindReview,
		Agent:    &in.Team.Reviewer,
		Phase:    info,
		Artifact: produced,
	})
	if err != nil {
		return Attempt{}, err
	}
	review, err := e.gen.Complete(ai.WithPurpose(ctx, ai.PurposeReview), reviewPrompt)
	if err != nil {
		return Attempt{}, err
	}
	e.bus.Publish(event.NewReviewCompletedEvent(ref, n, review))

	if err := m.TransitionTo(StateJudging, ""); err != nil {
		return Attempt{}, err
	}
	verdict, err := e.judge.Evaluate(ctx, produced, review)
	if err != nil {
		return Attempt{}, err
	}

	return Attempt{
		Number:    n,
		Produced:  produced,
		Review:    review,
		Verdict:   verdict.Verdict,
		Ambiguous: verdict.Ambiguous,
		Rationale: verdict.Rationale,
		Duration:  time.Since(start),
	}, nil
}

func (e *Executor) persist(res *Result) error {
	if e.steps == nil {
		return nil
	}
	path, err := e.steps.WriteStep(res.Index, SlotArtifact, res.Accepted.Produced)
	if err != nil {
		return err
	}
	res.ArtifactPath = path
	path, err = e.steps.WriteStep(res.Index, SlotReview, res.Accepted.Review)
	if err != nil {
		return err
	}
	res.ReviewPath = path
	return nil
}

// fail moves m to StateFailed when it is not already terminal.
func (e *Executor) fail(m *Machine, reason string) {
	if !m.Current().IsTerminal() {
		_ = m.TransitionTo(StateFailed, reason)
	}
}
