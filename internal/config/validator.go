package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "phase.max_attempts")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidProviders returns the supported generator providers
func ValidProviders() []string {
	return []string{ProviderOpenAI, ProviderGemini}
}

// ValidVerdictModes returns the supported judge verdict modes
func ValidVerdictModes() []string {
	return []string{VerdictContains, VerdictStrict}
}

// ValidNameLocales returns the supported persona name tables
func ValidNameLocales() []string {
	return []string{"en", "ja"}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateGenerator()...)
	errors = append(errors, c.validatePlan()...)
	errors = append(errors, c.validatePhase()...)
	errors = append(errors, c.validateJudge()...)
	errors = append(errors, c.validateTeam()...)
	errors = append(errors, c.validateArtifacts()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateDisplay()...)

	return errors
}

func (c *Config) validateGenerator() []ValidationError {
	var errors []ValidationError
	g := c.Generator

	if !slices.Contains(ValidProviders(), g.Provider) {
		errors = append(errors, ValidationError{
			Field:   "generator.provider",
			Value:   g.Provider,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProviders(), ", ")),
		})
	}

	if g.Temperature < 0 || g.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "generator.temperature",
			Value:   g.Temperature,
			Message: "must be between 0 and 2",
		})
	}

	if g.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "generator.timeout_seconds",
			Value:   g.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	if g.MaxTries < 1 {
		errors = append(errors, ValidationError{
			Field:   "generator.max_tries",
			Value:   g.MaxTries,
			Message: "must be at least 1",
		})
	}

	if g.RetryInitialMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "generator.retry_initial_ms",
			Value:   g.RetryInitialMs,
			Message: "must be non-negative",
		})
	}

	if g.RequestsPerMinute < 0 {
		errors = append(errors, ValidationError{
			Field:   "generator.requests_per_minute",
			Value:   g.RequestsPerMinute,
			Message: "must be non-negative (0 = unlimited)",
		})
	}

	return errors
}

func (c *Config) validatePlan() []ValidationError {
	var errors []ValidationError

	if c.Plan.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "plan.max_attempts",
			Value:   c.Plan.MaxAttempts,
			Message: "must be at least 1",
		})
	}

	if c.Plan.MinLines < 0 {
		errors = append(errors, ValidationError{
			Field:   "plan.min_lines",
			Value:   c.Plan.MinLines,
			Message: "must be non-negative",
		})
	}

	if c.Plan.MaxDroppedRatio < 0 || c.Plan.MaxDroppedRatio > 1 {
		errors = append(errors, ValidationError{
			Field:   "plan.max_dropped_ratio",
			Value:   c.Plan.MaxDroppedRatio,
			Message: "must be between 0 and 1",
		})
	}

	return errors
}

func (c *Config) validatePhase() []ValidationError {
	if c.Phase.MaxAttempts < 1 {
		return []ValidationError{{
			Field:   "phase.max_attempts",
			Value:   c.Phase.MaxAttempts,
			Message: "must be at least 1",
		}}
	}
	return nil
}

func (c *Config) validateJudge() []ValidationError {
	if !slices.Contains(ValidVerdictModes(), c.Judge.VerdictMode) {
		return []ValidationError{{
			Field:   "judge.verdict_mode",
			Value:   c.Judge.VerdictMode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidVerdictModes(), ", ")),
		}}
	}
	return nil
}

func (c *Config) validateTeam() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidNameLocales(), c.Team.NameLocale) {
		errors = append(errors, ValidationError{
			Field:   "team.name_locale",
			Value:   c.Team.NameLocale,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidNameLocales(), ", ")),
		})
	}

	if c.Team.MaxParallel < 1 {
		errors = append(errors, ValidationError{
			Field:   "team.max_parallel",
			Value:   c.Team.MaxParallel,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateArtifacts() []ValidationError {
	if strings.TrimSpace(c.Artifacts.DataDir) == "" {
		return []ValidationError{{
			Field:   "artifacts.data_dir",
			Value:   c.Artifacts.DataDir,
			Message: "cannot be empty",
		}}
	}
	return nil
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateDisplay() []ValidationError {
	var errors []ValidationError

	if c.Display.WordWrap < 0 {
		errors = append(errors, ValidationError{
			Field:   "display.word_wrap",
			Value:   c.Display.WordWrap,
			Message: "must be non-negative",
		})
	}

	if c.Display.PreviewChars < 0 {
		errors = append(errors, ValidationError{
			Field:   "display.preview_chars",
			Value:   c.Display.PreviewChars,
			Message: "must be non-negative",
		})
	}

	return errors
}
