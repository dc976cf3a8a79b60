package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Iron-Ham/crewpm/internal/ai"
	"github.com/Iron-Ham/crewpm/internal/config"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/event"
	"github.com/Iron-Ham/crewpm/internal/logging"
	"github.com/Iron-Ham/crewpm/internal/metrics"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/judge"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/phase"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/retry"
	"github.com/Iron-Ham/crewpm/internal/plan"
	"github.com/Iron-Ham/crewpm/internal/session"
	"github.com/Iron-Ham/crewpm/internal/team"
)

// Orchestrator coordinates the PM team, the phase teams and the session
// store for one run at a time.
type Orchestrator struct {
	gen      ai.Generator
	names    team.NameSource
	cfg      *config.Config
	bus      *event.Bus
	logger   *logging.Logger
	metrics  *metrics.Metrics
	provider string
	model    string
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBus publishes run events on bus.
func WithBus(bus *event.Bus) Option {
	return func(o *Orchestrator) {
		if bus != nil {
			o.bus = bus
		}
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics subscribes m to the run's events and exports it to the
// session's metrics file when the run ends.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithGeneratorInfo records the backend in the manifest.
func WithGeneratorInfo(provider, model string) Option {
	return func(o *Orchestrator) {
		o.provider = provider
		o.model = model
	}
}

// WithClock overrides the time source used to name sessions.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an Orchestrator. A nil cfg uses config.Default().
func New(gen ai.Generator, names team.NameSource, cfg *config.Config, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &Orchestrator{
		gen:    gen,
		names:  names,
		cfg:    cfg,
		logger: logging.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.bus == nil {
		o.bus = event.NewBus(o.logger)
	}
	if o.metrics != nil {
		o.metrics.Subscribe(o.bus)
	}
	return o
}

// Bus returns the bus run events are published on.
func (o *Orchestrator) Bus() *event.Bus {
	return o.bus
}

// Run executes request in a new session under the configured data directory.
func (o *Orchestrator) Run(ctx context.Context, request string) (*Outcome, error) {
	if strings.TrimSpace(request) == "" {
		return nil, crewerrors.NewValidationError("request must not be empty").WithField("request")
	}
	s, err := session.New(o.cfg.Artifacts.DataDir, o.now())
	if err != nil {
		return nil, err
	}
	return o.run(ctx, newRunState(request, s))
}

// RunIn executes request in a session the caller already created, e.g. to
// open the session's log file before the run starts.
func (o *Orchestrator) RunIn(ctx context.Context, s *session.RunSession, request string) (*Outcome, error) {
	if strings.TrimSpace(request) == "" {
		return nil, crewerrors.NewValidationError("request must not be empty").WithField("request")
	}
	return o.run(ctx, newRunState(request, s))
}

// Resume continues the interrupted run whose artifacts live at base. The
// elaboration and plan are reloaded, accepted phases are seeded from their
// step files and execution restarts at the first phase not yet accepted.
func (o *Orchestrator) Resume(ctx context.Context, base string) (*Outcome, error) {
	s, err := session.Open(base)
	if err != nil {
		return nil, err
	}
	st := newRunState("", s)

	m, err := st.Store.LoadManifest()
	if err != nil {
		return nil, crewerrors.NewNotFoundError("manifest", s.ID).WithCause(err)
	}
	if m.Status == session.StatusCompleted {
		return nil, crewerrors.NewValidationError("session already completed").WithField("session").WithValue(s.ID)
	}
	st.Manifest = m
	st.Request = m.Request

	// Missing context or roles files just mean the stage reruns.
	if text, err := st.Store.ReadContext(); err == nil {
		st.Elaboration = text
	}
	if text, err := st.Store.ReadRoles(); err == nil && st.Elaboration != "" {
		st.PlanText = text
	}

	if st.PlanText != "" {
		p := plan.Parse(st.PlanText)
		if err := plan.Validate(p); err != nil {
			return nil, crewerrors.NewPlanError("stored plan is invalid", err)
		}
		st.Plan = p

		done := min(m.CompletedCount(), len(p.Phases))
		for i := 0; i < done; i++ {
			content, err := st.Store.ReadStep(i+1, phase.SlotArtifact)
			if err != nil {
				done = i
				break
			}
			if err := st.Outputs.Put(p.Phases[i].Name, content); err != nil {
				return nil, err
			}
		}
		st.ResumeFrom = done + 1
	} else {
		st.ResumeFrom = 1
	}

	o.logger.Info("resuming session", "session_id", s.ID, "resume_from", st.ResumeFrom)
	return o.run(ctx, st)
}

func (o *Orchestrator) run(ctx context.Context, st *RunState) (*Outcome, error) {
	logger := o.logger.WithSession(st.Session.ID)

	lock, err := session.AcquireLock(st.Session, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release lock", "error", err)
		}
	}()

	if st.Manifest == nil {
		st.Manifest = &session.Manifest{
			SessionID: st.Session.ID,
			Request:   st.Request,
			CreatedAt: st.Session.Timestamp,
		}
	}
	st.Manifest.Provider = o.provider
	st.Manifest.Model = o.model
	st.Manifest.Status = session.StatusRunning
	st.Manifest.Error = ""
	o.saveManifest(st, logger)

	o.bus.Publish(event.NewRunStartedEvent(st.Session.ID, st.Session.Base, st.Request, st.ResumeFrom))
	logger.Info("run started", "base", st.Session.Base, "resume_from", st.ResumeFrom)

	stage, phaseName, attempt, err := o.execute(ctx, st, logger)
	if err != nil {
		o.finishFailed(st, logger, stage, phaseName, attempt, err)
		return nil, err
	}

	st.Manifest.Status = session.StatusCompleted
	st.Manifest.FinalPath = st.FinalPath
	o.saveManifest(st, logger)

	d := time.Since(st.StartedAt)
	o.bus.Publish(event.NewRunCompletedEvent(st.Session.ID, st.FinalPath, len(st.Plan.Phases), d))
	o.exportMetrics(st, logger)
	logger.Info("run completed", "final", st.FinalPath, "duration", d)

	attempts := 0
	for _, r := range st.Manifest.Retries {
		attempts += r.Attempts
	}
	return &Outcome{
		SessionID: st.Session.ID,
		Base:      st.Session.Base,
		FinalPath: st.FinalPath,
		Final:     st.Final,
		Phases:    st.Outputs.Names(),
		Attempts:  attempts,
		Duration:  d,
	}, nil
}

// execute runs every stage and reports where a failure happened.
func (o *Orchestrator) execute(ctx context.Context, st *RunState, logger *logging.Logger) (Stage, string, int, error) {
	builder := team.NewBuilder(o.gen, o.names,
		team.WithMaxParallel(o.cfg.Team.MaxParallel),
		team.WithLogger(logger),
	)

	pm, err := builder.BuildPM(ctx, st.Request)
	if err != nil {
		return StageTeam, "", 0, err
	}
	st.PM = pm
	o.bus.Publish(event.NewTeamFormedEvent(pm.JobLabel, pm.Producer.Role, pm.Reviewer.Role))

	if st.Elaboration == "" {
		elaboration, err := NewElaborator(o.gen).Elaborate(ctx, pm.Producer, st.Request)
		if err != nil {
			return StageElaborate, "", 0, err
		}
		st.Elaboration = elaboration
		if _, err := st.Store.WriteContext(elaboration); err != nil {
			return StageElaborate, "", 0, err
		}
	}
	o.bus.Publish(event.NewContextElaboratedEvent(st.Elaboration))

	if st.Plan == nil {
		planner := NewPlanGenerator(o.gen,
			WithPlanLimits(o.cfg.Plan.MaxAttempts, o.cfg.Plan.MinLines, o.cfg.Plan.MaxDroppedRatio),
			WithPlanBus(o.bus),
			WithPlanLogger(logger),
		)
		p, raw, err := planner.Generate(ctx, pm.Producer, st.Request, st.Elaboration)
		if err != nil {
			return StagePlan, "", 0, err
		}
		st.Plan = p
		st.PlanText = raw
		if _, err := st.Store.WriteRoles(raw); err != nil {
			return StagePlan, "", 0, err
		}
	}
	if len(st.Manifest.Phases) != len(st.Plan.Phases) {
		st.Manifest.Phases = make([]session.PhaseRecord, len(st.Plan.Phases))
		for i, p := range st.Plan.Phases {
			st.Manifest.Phases[i] = session.PhaseRecord{Index: i + 1, Name: p.Name, JobLabel: p.JobLabel}
		}
	}
	o.saveManifest(st, logger)

	teams, err := builder.BuildAll(ctx, st.Plan, st.Request)
	if err != nil {
		return StageTeam, "", 0, err
	}
	for _, t := range teams {
		st.Teams[t.JobLabel] = t
		st.TeamOrder = append(st.TeamOrder, t.JobLabel)
		if _, err := st.Store.AppendTeam(team.RenderBlock(t)); err != nil {
			return StageTeam, "", 0, err
		}
		o.bus.Publish(event.NewTeamFormedEvent(t.JobLabel, t.Producer.Role, t.Reviewer.Role))
	}

	retries := retry.NewManager()
	retries.LoadStates(st.Manifest.Retries)
	j := judge.New(o.gen, o.cfg.Judge.VerdictMode,
		judge.WithAgent(pm.Producer),
		judge.WithLogger(logger),
	)
	exec := phase.NewExecutor(o.gen, j,
		phase.WithMaxAttempts(o.cfg.Phase.MaxAttempts),
		phase.WithBus(o.bus),
		phase.WithStepWriter(st.Store),
		phase.WithRetryManager(retries),
		phase.WithLogger(logger),
	)

	results, err := exec.RunAll(ctx, phase.Sequence{
		Request:     st.Request,
		Elaboration: st.Elaboration,
		Plan:        st.Plan,
		Teams:       st.Teams,
		Outputs:     st.Outputs,
		OnAccepted: func(res *phase.Result) {
			rec := &st.Manifest.Phases[res.Index-1]
			rec.Accepted = true
			rec.Attempts = res.Accepted.Number
			rec.ArtifactPath = res.ArtifactPath
			st.Manifest.Retries = retries.GetAllStates()
			o.saveManifest(st, logger)
		},
	})
	st.Results = results
	st.Manifest.Retries = retries.GetAllStates()
	if err != nil {
		var phaseErr *crewerrors.PhaseError
		if errors.As(err, &phaseErr) {
			return StagePhase, phaseErr.Phase, phaseErr.Attempt, err
		}
		return StagePhase, "", 0, err
	}

	final, err := NewSynthesizer(o.gen, o.cfg.Synthesis.IncludeContent).
		Synthesize(ctx, pm.Reviewer, st.Elaboration, st.Outputs.All())
	if err != nil {
		return StageSynthesize, "", 0, err
	}
	path, err := st.Store.WriteFinal(0, final)
	if err != nil {
		return StageSynthesize, "", 0, err
	}
	st.Final = final
	st.FinalPath = path
	o.bus.Publish(event.NewSynthesisCompletedEvent(path, final))
	return "", "", 0, nil
}

func (o *Orchestrator) finishFailed(st *RunState, logger *logging.Logger, stage Stage, phaseName string, attempt int, err error) {
	st.Manifest.Status = session.StatusFailed
	if crewerrors.IsCanceled(err) {
		st.Manifest.Status = session.StatusCanceled
	}
	st.Manifest.Error = err.Error()
	o.saveManifest(st, logger)

	o.bus.Publish(event.NewRunFailedEvent(string(stage), phaseName, attempt, err))
	o.exportMetrics(st, logger)
	logger.Error("run failed", "stage", stage, "phase", phaseName, "attempt", attempt, "error", err)
}

// saveManifest logs rather than fails: the artifacts themselves are the record.
func (o *Orchestrator) saveManifest(st *RunState, logger *logging.Logger) {
	if err := st.Store.SaveManifest(st.Manifest); err != nil {
		logger.Warn("failed to save manifest", "error", err)
	}
}

func (o *Orchestrator) exportMetrics(st *RunState, logger *logging.Logger) {
	if o.metrics == nil || !o.cfg.Metrics.Enabled {
		return
	}
	if err := o.metrics.WriteTextfile(st.Store.MetricsPath()); err != nil {
		logger.Warn("failed to write metrics", "path", st.Store.MetricsPath(), "error", err)
	}
}
