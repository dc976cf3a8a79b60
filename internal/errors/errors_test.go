package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// GenerationError Tests
// -----------------------------------------------------------------------------

func TestNewGenerationError(t *testing.T) {
	cause := fmt.Errorf("status 500")
	err := NewGenerationError("completion failed", cause)

	if err.message != "completion failed" {
		t.Errorf("message = %q, want %q", err.message, "completion failed")
	}
	if err.cause != cause {
		t.Errorf("cause = %v, want %v", err.cause, cause)
	}
	if err.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityError)
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
	if !err.IsUserFacing() {
		t.Error("IsUserFacing() = false, want true")
	}
}

func TestGenerationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *GenerationError
		want string
	}{
		{
			name: "no context",
			err:  NewGenerationError("completion failed", nil),
			want: "generation error: completion failed",
		},
		{
			name: "provider and purpose",
			err:  NewGenerationError("completion failed", nil).WithProvider("openai").WithPurpose("judge"),
			want: "generation error [provider=openai, purpose=judge]: completion failed",
		},
		{
			name: "full context with cause",
			err: NewGenerationError("completion failed", ErrRateLimited).
				WithProvider("gemini").WithModel("gemini-2.5-flash").WithPurpose("plan"),
			want: "generation error [provider=gemini, model=gemini-2.5-flash, purpose=plan]: completion failed: rate limited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerationError_Is(t *testing.T) {
	err := NewGenerationError("completion failed", ErrRateLimited).WithRetryable(true)

	if !errors.Is(err, ErrGeneration) {
		t.Error("errors.Is(err, ErrGeneration) = false, want true")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("errors.Is(err, ErrRateLimited) = false, want true")
	}
	if !errors.Is(err, &GenerationError{}) {
		t.Error("errors.Is(err, &GenerationError{}) = false, want true")
	}
	if errors.Is(err, ErrPlanTooShort) {
		t.Error("errors.Is(err, ErrPlanTooShort) = true, want false")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable() = false, want true")
	}
}

// -----------------------------------------------------------------------------
// PlanError Tests
// -----------------------------------------------------------------------------

func TestPlanError(t *testing.T) {
	tests := []struct {
		name   string
		err    *PlanError
		want   string
		target error
	}{
		{
			name:   "too short",
			err:    NewPlanError("plan never exceeded the line minimum", ErrPlanTooShort).WithAttempts(5).WithLines(3),
			want:   "plan error [attempts=5, lines=3]: plan never exceeded the line minimum: plan too short",
			target: ErrPlanTooShort,
		},
		{
			name:   "invalid wraps cause",
			err:    NewPlanError("plan is invalid", fmt.Errorf("%w: %w", ErrPlanInvalid, ErrDuplicatePhase)),
			want:   "plan error: plan is invalid: plan is invalid: duplicate phase name",
			target: ErrDuplicatePhase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(err, %v) = false, want true", tt.target)
			}
			var planErr *PlanError
			if !errors.As(fmt.Errorf("wrapped: %w", tt.err), &planErr) {
				t.Error("errors.As(*PlanError) = false, want true")
			}
		})
	}
}

// -----------------------------------------------------------------------------
// PhaseError Tests
// -----------------------------------------------------------------------------

func TestPhaseError(t *testing.T) {
	err := NewPhaseError("no attempt accepted", ErrPhaseExhausted).
		WithPhase("Copy Draft", 2).
		WithAttempt(5)

	want := "phase error [phase=Copy Draft, step=2, attempt=5]: no attempt accepted: phase attempts exhausted"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrPhaseExhausted) {
		t.Error("errors.Is(err, ErrPhaseExhausted) = false, want true")
	}
	if errors.Is(err, ErrPlanInvalid) {
		t.Error("errors.Is(err, ErrPlanInvalid) = true, want false")
	}
	if IsRetryable(err) {
		t.Error("IsRetryable() = true, want false")
	}
	if GetSeverity(err) != SeverityError {
		t.Errorf("GetSeverity() = %v, want %v", GetSeverity(err), SeverityError)
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("session", "20250101_120000_abcd1234")
	if got, want := err.Error(), "session '20250101_120000_abcd1234' not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	withCause := NewNotFoundError("manifest", "x").WithCause(fmt.Errorf("no such file"))
	if !strings.HasSuffix(withCause.Error(), ": no such file") {
		t.Errorf("Error() = %q, want cause suffix", withCause.Error())
	}
	if !errors.Is(withCause, &NotFoundError{}) {
		t.Error("errors.Is(err, &NotFoundError{}) = false, want true")
	}
	if GetSeverity(err) != SeverityWarning {
		t.Errorf("GetSeverity() = %v, want %v", GetSeverity(err), SeverityWarning)
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "message only",
			err:  NewValidationError("request cannot be empty"),
			want: "validation error: request cannot be empty",
		},
		{
			name: "field and value",
			err:  NewValidationError("must be positive").WithField("phase.max_attempts").WithValue(0),
			want: "validation error [field=phase.max_attempts, value=0]: must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("errors.Is(err, ErrInvalidInput) = false, want true")
			}
		})
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("completion", 2*time.Minute)

	if got, want := err.Error(), "timeout error: completion (timeout: 2m0s)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("errors.Is(err, ErrTimeout) = false, want true")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable() = false, want true")
	}

	withCause := err.WithCause(context.DeadlineExceeded)
	if !errors.Is(withCause, context.DeadlineExceeded) {
		t.Error("errors.Is(err, context.DeadlineExceeded) = false, want true")
	}
}

// -----------------------------------------------------------------------------
// Classification Helper Tests
// -----------------------------------------------------------------------------

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", fmt.Errorf("boom"), false},
		{"wrapped timeout sentinel", fmt.Errorf("call: %w", ErrTimeout), true},
		{"wrapped rate limit sentinel", fmt.Errorf("call: %w", ErrRateLimited), true},
		{"non-retryable generation error", NewGenerationError("bad request", nil), false},
		{"retryable generation error", NewGenerationError("server", nil).WithRetryable(true), true},
		{"wrapped validation error", Wrap(NewValidationError("bad"), "load"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
	if IsUserFacing(fmt.Errorf("plain")) {
		t.Error("IsUserFacing(plain) = true, want false")
	}
	if !IsUserFacing(Wrap(NewPhaseError("x", nil), "run")) {
		t.Error("IsUserFacing(PhaseError) = false, want true")
	}
}

func TestGetSeverity(t *testing.T) {
	if GetSeverity(nil) != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v, want %v", GetSeverity(nil), SeverityDebug)
	}
	if GetSeverity(fmt.Errorf("plain")) != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want %v", GetSeverity(fmt.Errorf("plain")), SeverityError)
	}
}

func TestCanceled(t *testing.T) {
	err := Canceled(context.Canceled)

	if !IsCanceled(err) {
		t.Error("IsCanceled() = false, want true")
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("errors.Is(err, context.Canceled) = false, want true")
	}
	if IsCanceled(ErrPhaseExhausted) {
		t.Error("IsCanceled(ErrPhaseExhausted) = true, want false")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) != nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) != nil")
	}

	err := Wrapf(ErrEmptyPlan, "parse %s", "plan.md")
	if got, want := err.Error(), "parse plan.md: plan has no phases"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrEmptyPlan) {
		t.Error("errors.Is(err, ErrEmptyPlan) = false, want true")
	}
}
