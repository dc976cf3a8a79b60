package orchestrator

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/crewpm/internal/ai"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/event"
	"github.com/Iron-Ham/crewpm/internal/logging"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/prompt"
	"github.com/Iron-Ham/crewpm/internal/plan"
	"github.com/Iron-Ham/crewpm/internal/team"
)

// Plan generation defaults.
const (
	DefaultPlanAttempts    = 5
	DefaultPlanMinLines    = 5
	DefaultMaxDroppedRatio = 0.5
)

// PlanGenerator asks the PM for a phase plan until one is usable.
type PlanGenerator struct {
	gen             ai.Generator
	bus             *event.Bus
	logger          *logging.Logger
	maxAttempts     int
	minLines        int
	maxDroppedRatio float64
}

// PlanOption configures a PlanGenerator.
type PlanOption func(*PlanGenerator)

// WithPlanLimits sets the attempt cap, the line count a plan must exceed and
// the dropped-line ratio above which a warning is emitted. Non-positive
// values keep the defaults.
func WithPlanLimits(maxAttempts, minLines int, maxDroppedRatio float64) PlanOption {
	return func(g *PlanGenerator) {
		if maxAttempts > 0 {
			g.maxAttempts = maxAttempts
		}
		if minLines >= 0 {
			g.minLines = minLines
		}
		if maxDroppedRatio > 0 {
			g.maxDroppedRatio = maxDroppedRatio
		}
	}
}

// WithPlanBus publishes plan events on bus.
func WithPlanBus(bus *event.Bus) PlanOption {
	return func(g *PlanGenerator) {
		if bus != nil {
			g.bus = bus
		}
	}
}

// WithPlanLogger sets the generator's logger.
func WithPlanLogger(l *logging.Logger) PlanOption {
	return func(g *PlanGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewPlanGenerator creates a PlanGenerator.
func NewPlanGenerator(gen ai.Generator, opts ...PlanOption) *PlanGenerator {
	g := &PlanGenerator{
		gen:             gen,
		logger:          logging.NopLogger(),
		maxAttempts:     DefaultPlanAttempts,
		minLines:        DefaultPlanMinLines,
		maxDroppedRatio: DefaultMaxDroppedRatio,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.bus == nil {
		g.bus = event.NewBus(g.logger)
	}
	return g
}

// Generate returns the parsed plan and its raw text. A reply with no more
// than the minimum number of non-empty lines, or one that fails validation,
// is discarded and regenerated. After the last attempt the most recent
// rejection is returned as a PlanError.
func (g *PlanGenerator) Generate(ctx context.Context, pm team.Agent, request, elaboration string) (*plan.Plan, string, error) {
	text, err := prompt.NewPlanBuilder().Build(&prompt.Context{
		Kind:        prompt.KindPlan,
		Request:     request,
		Elaboration: elaboration,
		Agent:       &pm,
	})
	if err != nil {
		return nil, "", err
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", crewerrors.Canceled(err)
		}

		raw, err := g.gen.Complete(ai.WithPurpose(ctx, ai.PurposePlan), text)
		if err != nil {
			return nil, "", crewerrors.Wrap(err, "generate plan")
		}

		lines := plan.CountNonEmptyLines(raw)
		if lines <= g.minLines {
			reason := fmt.Sprintf("plan has %d lines, need more than %d", lines, g.minLines)
			g.reject(attempt, lines, reason, true)
			lastErr = crewerrors.NewPlanError(reason, crewerrors.ErrPlanTooShort).WithAttempts(attempt).WithLines(lines)
			continue
		}

		p := plan.Parse(raw)
		if err := plan.Validate(p); err != nil {
			g.reject(attempt, lines, err.Error(), true)
			lastErr = crewerrors.NewPlanError("plan is invalid", fmt.Errorf("%w: %w", crewerrors.ErrPlanInvalid, err)).
				WithAttempts(attempt).WithLines(lines)
			continue
		}

		if ratio := p.DroppedRatio(); ratio > g.maxDroppedRatio {
			g.reject(attempt, lines, fmt.Sprintf("%d of %d lines are not phase records", len(p.Dropped), p.NonEmptyLines), false)
		}
		for _, d := range p.Dropped {
			g.logger.Debug("plan line dropped", "line", d.Line, "reason", d.Reason)
		}

		g.bus.Publish(event.NewPlanGeneratedEvent(attempt, p.Names(), len(p.Dropped), raw))
		g.logger.Info("plan generated", "attempt", attempt, "phases", len(p.Phases), "dropped", len(p.Dropped))
		return p, raw, nil
	}
	return nil, "", lastErr
}

func (g *PlanGenerator) reject(attempt, lines int, reason string, retry bool) {
	g.bus.Publish(event.NewPlanRejectedEvent(attempt, lines, reason, retry))
	g.logger.Warn("plan rejected", "attempt", attempt, "lines", lines, "reason", reason, "retry", retry)
}
