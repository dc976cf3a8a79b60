// Package errors provides centralized error definitions and error handling utilities
// for crewpm. It defines domain-specific errors, semantic error types, error
// constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of a run stage:
//   - GenerationError: a call to the text generation provider failed
//   - PlanError: the generated process plan could not be turned into phases
//   - PhaseError: a phase could not be completed (for example, retries exhausted)
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewGenerationError("completion failed", cause).WithProvider("openai")
//
//	if errors.Is(err, errors.ErrPhaseExhausted) { ... }
//
//	var planErr *errors.PlanError
//	if errors.As(err, &planErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Generation-related sentinel errors
var (
	// ErrGeneration indicates that the text generation provider call failed.
	ErrGeneration = New("generation failed")
	// ErrRateLimited indicates that the provider rejected the call for rate limiting.
	ErrRateLimited = New("rate limited")
	// ErrEmptyCompletion indicates that the provider returned no content.
	ErrEmptyCompletion = New("empty completion")
	// ErrMissingCredential indicates that no API key was configured for the provider.
	ErrMissingCredential = New("missing provider credential")
)

// Plan-related sentinel errors
var (
	// ErrPlanTooShort indicates that the generated plan never passed the line-count gate.
	ErrPlanTooShort = New("plan too short")
	// ErrPlanInvalid indicates that the generated plan could not be validated.
	ErrPlanInvalid = New("plan is invalid")
	// ErrEmptyPlan indicates that no phase records could be parsed from the plan.
	ErrEmptyPlan = New("plan has no phases")
	// ErrDuplicatePhase indicates that two phases share the same name.
	ErrDuplicatePhase = New("duplicate phase name")
	// ErrUnknownJobLabel indicates that a phase references a job label without a team.
	ErrUnknownJobLabel = New("unknown job label")
)

// Phase-related sentinel errors
var (
	// ErrPhaseExhausted indicates that a phase hit its attempt cap without acceptance.
	ErrPhaseExhausted = New("phase attempts exhausted")
	// ErrJudgeAmbiguous indicates that a verdict reply carried no recognizable token.
	ErrJudgeAmbiguous = New("judge verdict ambiguous")
	// ErrInvalidTransition indicates a phase attempt state transition that is not allowed.
	ErrInvalidTransition = New("invalid attempt state transition")
	// ErrOutputExists indicates a second write for an already accepted phase.
	ErrOutputExists = New("phase output already recorded")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// CrewError is the base interface for all crewpm errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type CrewError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatContext renders "prefix [k=v, ...]: message: cause".
func formatContext(prefix string, parts []string, message string, cause error) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// GenerationError represents a failed call to the text generation provider.
//
// Example:
//
//	err := errors.NewGenerationError("completion failed", cause).WithProvider("openai").WithPurpose("judge")
//	fmt.Println(err) // "generation error [provider=openai, purpose=judge]: completion failed: ..."
type GenerationError struct {
	baseError
	Provider string
	Model    string
	Purpose  string
}

// NewGenerationError creates a new GenerationError. Generation errors are fatal
// by default; callers mark rate limits and transient server failures retryable.
func NewGenerationError(message string, cause error) *GenerationError {
	return &GenerationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithProvider adds the provider name to the error context.
func (e *GenerationError) WithProvider(provider string) *GenerationError {
	e.Provider = provider
	return e
}

// WithModel adds the model name to the error context.
func (e *GenerationError) WithModel(model string) *GenerationError {
	e.Model = model
	return e
}

// WithPurpose records which pipeline step issued the call.
func (e *GenerationError) WithPurpose(purpose string) *GenerationError {
	e.Purpose = purpose
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *GenerationError) WithRetryable(r bool) *GenerationError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *GenerationError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", e.Provider))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if e.Purpose != "" {
		parts = append(parts, fmt.Sprintf("purpose=%s", e.Purpose))
	}
	return formatContext("generation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *GenerationError) Is(target error) bool {
	if _, ok := target.(*GenerationError); ok {
		return true
	}
	if target == ErrGeneration {
		return true
	}
	return e.baseError.Is(target)
}

// PlanError represents a failure to obtain a usable process plan.
//
// Example:
//
//	err := errors.NewPlanError("plan never exceeded 5 lines", errors.ErrPlanTooShort).WithAttempts(5)
type PlanError struct {
	baseError
	Attempts int
	Lines    int
}

// NewPlanError creates a new PlanError.
func NewPlanError(message string, cause error) *PlanError {
	return &PlanError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithAttempts records how many generation attempts were made.
func (e *PlanError) WithAttempts(n int) *PlanError {
	e.Attempts = n
	return e
}

// WithLines records the non-empty line count of the last plan.
func (e *PlanError) WithLines(n int) *PlanError {
	e.Lines = n
	return e
}

// Error returns the formatted error message.
func (e *PlanError) Error() string {
	var parts []string
	if e.Attempts > 0 {
		parts = append(parts, fmt.Sprintf("attempts=%d", e.Attempts))
	}
	if e.Lines > 0 {
		parts = append(parts, fmt.Sprintf("lines=%d", e.Lines))
	}
	return formatContext("plan error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *PlanError) Is(target error) bool {
	if _, ok := target.(*PlanError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PhaseError represents a failure while executing one phase of the plan.
//
// Example:
//
//	err := errors.NewPhaseError("no attempt accepted", errors.ErrPhaseExhausted).
//		WithPhase("Copy Draft", 2).WithAttempt(5)
type PhaseError struct {
	baseError
	Phase   string
	Index   int // 1-based position in the plan, 0 if unknown
	Attempt int
}

// NewPhaseError creates a new PhaseError.
func NewPhaseError(message string, cause error) *PhaseError {
	return &PhaseError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithPhase adds the phase name and its 1-based plan position.
func (e *PhaseError) WithPhase(name string, index int) *PhaseError {
	e.Phase = name
	e.Index = index
	return e
}

// WithAttempt records the attempt that failed.
func (e *PhaseError) WithAttempt(n int) *PhaseError {
	e.Attempt = n
	return e
}

// Error returns the formatted error message.
func (e *PhaseError) Error() string {
	var parts []string
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}
	if e.Index > 0 {
		parts = append(parts, fmt.Sprintf("step=%d", e.Index))
	}
	if e.Attempt > 0 {
		parts = append(parts, fmt.Sprintf("attempt=%d", e.Attempt))
	}
	return formatContext("phase error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *PhaseError) Is(target error) bool {
	if _, ok := target.(*PhaseError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("session", "20250101_120000_abcd1234")
//	fmt.Println(err) // "session '20250101_120000_abcd1234' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("request cannot be empty").WithField("request")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return formatContext("validation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("completion", 2*time.Minute)
//	fmt.Println(err) // "timeout error: completion (timeout: 2m0s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing CrewError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout or ErrRateLimited
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var crewErr CrewError
	if As(err, &crewErr) {
		return crewErr.IsRetryable()
	}

	if Is(err, ErrTimeout) || Is(err, ErrRateLimited) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var crewErr CrewError
	if As(err, &crewErr) {
		return crewErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement CrewError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var crewErr CrewError
	if As(err, &crewErr) {
		return crewErr.Severity()
	}

	return SeverityError
}

// IsCanceled reports whether err stems from cooperative cancellation.
func IsCanceled(err error) bool {
	return Is(err, ErrCanceled)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Canceled wraps a context error so that callers can match ErrCanceled while
// still seeing the original context cause.
func Canceled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, cause)
}
