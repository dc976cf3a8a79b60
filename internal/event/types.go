package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier such as "phase.accepted".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers published during a run.
const (
	TypeRunStarted         = "run.started"
	TypeContextElaborated  = "context.elaborated"
	TypePlanGenerated      = "plan.generated"
	TypePlanRejected       = "plan.rejected"
	TypeTeamFormed         = "team.formed"
	TypePhaseStarted       = "phase.started"
	TypeArtifactProduced   = "artifact.produced"
	TypeReviewCompleted    = "review.completed"
	TypeVerdictRendered    = "verdict.rendered"
	TypePhaseRetrying      = "phase.retrying"
	TypePhaseAccepted      = "phase.accepted"
	TypeSynthesisCompleted = "synthesis.completed"
	TypeRunCompleted       = "run.completed"
	TypeRunFailed          = "run.failed"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// PhaseRef identifies a phase within the plan.
type PhaseRef struct {
	Index int    // 1-based position in the plan
	Total int    // number of phases in the plan
	Name  string // phase name
}

// -----------------------------------------------------------------------------
// Run Lifecycle Events
// -----------------------------------------------------------------------------

// RunStartedEvent is emitted once the session directory exists.
type RunStartedEvent struct {
	baseEvent
	SessionID string
	Base      string // artifact path prefix
	Request   string
	// ResumeFrom is the 1-based phase the run continues from; 0 for a fresh run.
	ResumeFrom int
}

// NewRunStartedEvent creates a RunStartedEvent.
func NewRunStartedEvent(sessionID, base, request string, resumeFrom int) RunStartedEvent {
	return RunStartedEvent{
		baseEvent:  newBaseEvent(TypeRunStarted),
		SessionID:  sessionID,
		Base:       base,
		Request:    request,
		ResumeFrom: resumeFrom,
	}
}

// RunCompletedEvent is emitted after the synthesis has been stored.
type RunCompletedEvent struct {
	baseEvent
	SessionID string
	FinalPath string
	Phases    int
	Duration  time.Duration
}

// NewRunCompletedEvent creates a RunCompletedEvent.
func NewRunCompletedEvent(sessionID, finalPath string, phases int, d time.Duration) RunCompletedEvent {
	return RunCompletedEvent{
		baseEvent: newBaseEvent(TypeRunCompleted),
		SessionID: sessionID,
		FinalPath: finalPath,
		Phases:    phases,
		Duration:  d,
	}
}

// RunFailedEvent is emitted when a fatal error aborts the run.
type RunFailedEvent struct {
	baseEvent
	Stage   string // elaborate, plan, team, phase, synthesize
	Phase   string // empty unless Stage is "phase"
	Attempt int
	Err     error
}

// NewRunFailedEvent creates a RunFailedEvent.
func NewRunFailedEvent(stage, phase string, attempt int, err error) RunFailedEvent {
	return RunFailedEvent{
		baseEvent: newBaseEvent(TypeRunFailed),
		Stage:     stage,
		Phase:     phase,
		Attempt:   attempt,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Preparation Events
// -----------------------------------------------------------------------------

// ContextElaboratedEvent carries the PM's elaboration of the request.
type ContextElaboratedEvent struct {
	baseEvent
	Elaboration string
}

// NewContextElaboratedEvent creates a ContextElaboratedEvent.
func NewContextElaboratedEvent(elaboration string) ContextElaboratedEvent {
	return ContextElaboratedEvent{
		baseEvent:   newBaseEvent(TypeContextElaborated),
		Elaboration: elaboration,
	}
}

// PlanGeneratedEvent is emitted when a plan passes the shape and validation gates.
type PlanGeneratedEvent struct {
	baseEvent
	Attempt int
	Phases  []string // phase names in plan order
	Dropped int      // malformed lines ignored by the parser
	Raw     string
}

// NewPlanGeneratedEvent creates a PlanGeneratedEvent.
func NewPlanGeneratedEvent(attempt int, phases []string, dropped int, raw string) PlanGeneratedEvent {
	return PlanGeneratedEvent{
		baseEvent: newBaseEvent(TypePlanGenerated),
		Attempt:   attempt,
		Phases:    phases,
		Dropped:   dropped,
		Raw:       raw,
	}
}

// PlanRejectedEvent is a warning: a generated plan was discarded and will be
// regenerated, or it was accepted with many malformed lines.
type PlanRejectedEvent struct {
	baseEvent
	Attempt int
	Lines   int // non-empty lines in the rejected plan
	Reason  string
	Retry   bool // false when the plan was kept despite the warning
}

// NewPlanRejectedEvent creates a PlanRejectedEvent.
func NewPlanRejectedEvent(attempt, lines int, reason string, retry bool) PlanRejectedEvent {
	return PlanRejectedEvent{
		baseEvent: newBaseEvent(TypePlanRejected),
		Attempt:   attempt,
		Lines:     lines,
		Reason:    reason,
		Retry:     retry,
	}
}

// TeamFormedEvent is emitted when a producer/reviewer pair is ready.
type TeamFormedEvent struct {
	baseEvent
	JobLabel string
	Producer string // producer role label
	Reviewer string // reviewer role label
}

// NewTeamFormedEvent creates a TeamFormedEvent.
func NewTeamFormedEvent(jobLabel, producer, reviewer string) TeamFormedEvent {
	return TeamFormedEvent{
		baseEvent: newBaseEvent(TypeTeamFormed),
		JobLabel:  jobLabel,
		Producer:  producer,
		Reviewer:  reviewer,
	}
}

// -----------------------------------------------------------------------------
// Phase Events
// -----------------------------------------------------------------------------

// PhaseStartedEvent is emitted before the first attempt of a phase.
type PhaseStartedEvent struct {
	baseEvent
	PhaseRef
	JobLabel    string
	Description string
}

// NewPhaseStartedEvent creates a PhaseStartedEvent.
func NewPhaseStartedEvent(ref PhaseRef, jobLabel, description string) PhaseStartedEvent {
	return PhaseStartedEvent{
		baseEvent:   newBaseEvent(TypePhaseStarted),
		PhaseRef:    ref,
		JobLabel:    jobLabel,
		Description: description,
	}
}

// ArtifactProducedEvent carries the producer's output for one attempt.
type ArtifactProducedEvent struct {
	baseEvent
	PhaseRef
	Attempt int
	Content string
}

// NewArtifactProducedEvent creates an ArtifactProducedEvent.
func NewArtifactProducedEvent(ref PhaseRef, attempt int, content string) ArtifactProducedEvent {
	return ArtifactProducedEvent{
		baseEvent: newBaseEvent(TypeArtifactProduced),
		PhaseRef:  ref,
		Attempt:   attempt,
		Content:   content,
	}
}

// ReviewCompletedEvent carries the reviewer's critique for one attempt.
type ReviewCompletedEvent struct {
	baseEvent
	PhaseRef
	Attempt int
	Review  string
}

// NewReviewCompletedEvent creates a ReviewCompletedEvent.
func NewReviewCompletedEvent(ref PhaseRef, attempt int, review string) ReviewCompletedEvent {
	return ReviewCompletedEvent{
		baseEvent: newBaseEvent(TypeReviewCompleted),
		PhaseRef:  ref,
		Attempt:   attempt,
		Review:    review,
	}
}

// VerdictRenderedEvent carries the PM's decision for one attempt.
type VerdictRenderedEvent struct {
	baseEvent
	PhaseRef
	Attempt   int
	Accepted  bool
	Ambiguous bool // strict mode found no YES/NO token
	Rationale string
}

// NewVerdictRenderedEvent creates a VerdictRenderedEvent.
func NewVerdictRenderedEvent(ref PhaseRef, attempt int, accepted, ambiguous bool, rationale string) VerdictRenderedEvent {
	return VerdictRenderedEvent{
		baseEvent: newBaseEvent(TypeVerdictRendered),
		PhaseRef:  ref,
		Attempt:   attempt,
		Accepted:  accepted,
		Ambiguous: ambiguous,
		Rationale: rationale,
	}
}

// PhaseRetryingEvent is a status notice that a rejected phase will be attempted again.
type PhaseRetryingEvent struct {
	baseEvent
	PhaseRef
	NextAttempt int
	MaxAttempts int
}

// NewPhaseRetryingEvent creates a PhaseRetryingEvent.
func NewPhaseRetryingEvent(ref PhaseRef, next, max int) PhaseRetryingEvent {
	return PhaseRetryingEvent{
		baseEvent:   newBaseEvent(TypePhaseRetrying),
		PhaseRef:    ref,
		NextAttempt: next,
		MaxAttempts: max,
	}
}

// PhaseAcceptedEvent is emitted once a phase's artifact is recorded.
type PhaseAcceptedEvent struct {
	baseEvent
	PhaseRef
	Attempts     int
	ArtifactPath string
}

// NewPhaseAcceptedEvent creates a PhaseAcceptedEvent.
func NewPhaseAcceptedEvent(ref PhaseRef, attempts int, path string) PhaseAcceptedEvent {
	return PhaseAcceptedEvent{
		baseEvent:    newBaseEvent(TypePhaseAccepted),
		PhaseRef:     ref,
		Attempts:     attempts,
		ArtifactPath: path,
	}
}

// SynthesisCompletedEvent carries the final deliverable.
type SynthesisCompletedEvent struct {
	baseEvent
	Path    string
	Content string
}

// NewSynthesisCompletedEvent creates a SynthesisCompletedEvent.
func NewSynthesisCompletedEvent(path, content string) SynthesisCompletedEvent {
	return SynthesisCompletedEvent{
		baseEvent: newBaseEvent(TypeSynthesisCompleted),
		Path:      path,
		Content:   content,
	}
}
