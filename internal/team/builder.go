package team

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/crewpm/internal/ai"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/logging"
	"github.com/Iron-Ham/crewpm/internal/plan"
)

// NameSource supplies display names for new agents.
type NameSource interface {
	Generate() string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMaxParallel bounds how many teams BuildAll builds at once. Values below 1 mean 1.
func WithMaxParallel(n int) BuilderOption {
	return func(b *Builder) {
		b.maxParallel = max(n, 1)
	}
}

// WithLogger sets the builder's logger.
func WithLogger(l *logging.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder creates teams: two names, two personas, fixed role labels and goals.
type Builder struct {
	personas    *PersonaFactory
	names       NameSource
	maxParallel int
	logger      *logging.Logger
}

// NewBuilder creates a Builder that generates personas with gen and names with names.
func NewBuilder(gen ai.Generator, names NameSource, opts ...BuilderOption) *Builder {
	b := &Builder{
		personas:    NewPersonaFactory(gen),
		names:       names,
		maxParallel: 1,
		logger:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProducerRole returns the producer's role label.
func ProducerRole(jobLabel, name string) string {
	return fmt.Sprintf("%s producer: %s", jobLabel, name)
}

// ReviewerRole returns the reviewer's role label.
func ReviewerRole(jobLabel, name string) string {
	return fmt.Sprintf("%s reviewer: %s", jobLabel, name)
}

// ProducerGoal returns the producer's goal.
func ProducerGoal(jobLabel, description string) string {
	return fmt.Sprintf("As %s, carry out the role described as %q and deliver the artifact of the phase you own. "+
		"The artifact matters to the request as a whole: take the earlier phases into account "+
		"and complete it as an independent output.", jobLabel, description)
}

// ReviewerGoal returns the reviewer's goal.
func ReviewerGoal(jobLabel string) string {
	return fmt.Sprintf("Review the %s artifact and judge whether the producer's work may be submitted to the PM. "+
		"When the quality falls short, push for the improvements it needs.", jobLabel)
}

// Build forms the team for jobLabel. Any generator failure aborts the build.
func (b *Builder) Build(ctx context.Context, jobLabel, description, request string) (*Team, error) {
	producerName := b.names.Generate()
	reviewerName := b.names.Generate()

	producerRole := ProducerRole(jobLabel, producerName)
	producerPersona, err := b.personas.Create(ctx, producerName, jobLabel, description, request)
	if err != nil {
		return nil, crewerrors.Wrapf(err, "build %s team", jobLabel)
	}

	reviewerRole := ReviewerRole(jobLabel, reviewerName)
	reviewerPersona, err := b.personas.Create(ctx, reviewerName, jobLabel, description, request)
	if err != nil {
		return nil, crewerrors.Wrapf(err, "build %s team", jobLabel)
	}

	t := &Team{
		JobLabel:    jobLabel,
		Description: description,
		Producer: Agent{
			Role:    producerRole,
			Goal:    ProducerGoal(jobLabel, description),
			Persona: producerPersona + "\n" + producerResponsibility,
		},
		Reviewer: Agent{
			Role:    reviewerRole,
			Goal:    ReviewerGoal(jobLabel),
			Persona: reviewerPersona + "\n" + reviewerResponsibility,
		},
	}
	b.logger.Info("team formed", "job_label", jobLabel, "producer", producerRole, "reviewer", reviewerRole)
	return t, nil
}

// BuildPM forms the project-management team.
func (b *Builder) BuildPM(ctx context.Context, request string) (*Team, error) {
	return b.Build(ctx, PMJobLabel, PMDescription, request)
}

// BuildAll forms one team per job label of p, in p.JobOrder. Up to the
// configured parallelism teams are built at once; the first error cancels
// the others and is returned. The result always follows p.JobOrder.
func (b *Builder) BuildAll(ctx context.Context, p *plan.Plan, request string) ([]*Team, error) {
	teams := make([]*Team, len(p.JobOrder))

	workers := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(b.maxParallel)

	for i, jobLabel := range p.JobOrder {
		description := Describe(jobLabel, p.Groups[jobLabel])
		workers.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return crewerrors.Canceled(err)
			}
			t, err := b.Build(ctx, jobLabel, description, request)
			if err != nil {
				return err
			}
			teams[i] = t
			return nil
		})
	}

	if err := workers.Wait(); err != nil {
		return nil, err
	}
	return teams, nil
}
