package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete crewpm configuration
type Config struct {
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
	Plan      PlanConfig      `mapstructure:"plan" yaml:"plan"`
	Phase     PhaseConfig     `mapstructure:"phase" yaml:"phase"`
	Judge     JudgeConfig     `mapstructure:"judge" yaml:"judge"`
	Synthesis SynthesisConfig `mapstructure:"synthesis" yaml:"synthesis"`
	Team      TeamConfig      `mapstructure:"team" yaml:"team"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Display   DisplayConfig   `mapstructure:"display" yaml:"display"`
}

// Supported generator providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Verdict interpretation modes
const (
	VerdictContains = "contains"
	VerdictStrict   = "strict"
)

// GeneratorConfig controls the text generation backend
type GeneratorConfig struct {
	// Provider selects the backend: "openai" or "gemini"
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Model overrides the provider's default model
	Model string `mapstructure:"model" yaml:"model"`
	// Temperature is passed through to the provider (0 leaves the provider default)
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
	// BaseURL points the OpenAI client at a compatible endpoint
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the key.
	// Empty means OPENAI_API_KEY or GEMINI_API_KEY depending on the provider.
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env"`
	// TimeoutSeconds bounds a single generator call
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	// MaxTries is the total number of tries for a retryable call failure (1 disables retry)
	MaxTries int `mapstructure:"max_tries" yaml:"max_tries"`
	// RetryInitialMs is the first backoff interval
	RetryInitialMs int `mapstructure:"retry_initial_ms" yaml:"retry_initial_ms"`
	// RequestsPerMinute throttles calls client-side (0 = unlimited)
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// PlanConfig controls process plan generation
type PlanConfig struct {
	// MaxAttempts bounds how many plans are generated before giving up
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// MinLines is the line count a plan must exceed to be parsed
	MinLines int `mapstructure:"min_lines" yaml:"min_lines"`
	// MaxDroppedRatio warns when more than this share of non-empty lines is malformed
	MaxDroppedRatio float64 `mapstructure:"max_dropped_ratio" yaml:"max_dropped_ratio"`
}

// PhaseConfig controls per-phase execution
type PhaseConfig struct {
	// MaxAttempts caps produce/review/judge attempts per phase
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// JudgeConfig controls verdict interpretation
type JudgeConfig struct {
	// VerdictMode is "contains" (reject when the reply contains NO) or "strict"
	VerdictMode string `mapstructure:"verdict_mode" yaml:"verdict_mode"`
}

// SynthesisConfig controls the final merge step
type SynthesisConfig struct {
	// IncludeContent embeds every accepted artifact in the synthesis prompt.
	// When false only phase names are passed.
	IncludeContent bool `mapstructure:"include_content" yaml:"include_content"`
}

// TeamConfig controls team formation
type TeamConfig struct {
	// NameLocale selects the persona name table: "en" or "ja"
	NameLocale string `mapstructure:"name_locale" yaml:"name_locale"`
	// MaxParallel bounds concurrent team builds (1 = sequential)
	MaxParallel int `mapstructure:"max_parallel" yaml:"max_parallel"`
}

// ArtifactsConfig controls where run artifacts are written
type ArtifactsConfig struct {
	// DataDir is the root under which each run gets a timestamped directory
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled writes debug.log into each session directory
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum log level: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB is the size at which debug.log is rotated
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// MetricsConfig controls run metrics
type MetricsConfig struct {
	// Enabled writes {base}_metrics.prom at the end of every run
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DisplayConfig controls console output
type DisplayConfig struct {
	// Markdown renders artifacts with glamour when stdout is a terminal
	Markdown bool `mapstructure:"markdown" yaml:"markdown"`
	// WordWrap is the column width for rendered Markdown
	WordWrap int `mapstructure:"word_wrap" yaml:"word_wrap"`
	// ShowArtifacts prints every produced artifact and review, not just status lines
	ShowArtifacts bool `mapstructure:"show_artifacts" yaml:"show_artifacts"`
	// PreviewChars truncates artifact previews in status lines (0 = no preview)
	PreviewChars int `mapstructure:"preview_chars" yaml:"preview_chars"`
	// Theme is an optional path to a YAML color theme
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Generator: GeneratorConfig{
			Provider:       ProviderOpenAI,
			TimeoutSeconds: 180,
			MaxTries:       3,
			RetryInitialMs: 1000,
		},
		Plan: PlanConfig{
			MaxAttempts:     5,
			MinLines:        5,
			MaxDroppedRatio: 0.5,
		},
		Phase: PhaseConfig{
			MaxAttempts: 5,
		},
		Judge: JudgeConfig{
			VerdictMode: VerdictContains,
		},
		Synthesis: SynthesisConfig{
			IncludeContent: true,
		},
		Team: TeamConfig{
			NameLocale:  "en",
			MaxParallel: 1,
		},
		Artifacts: ArtifactsConfig{
			DataDir: "data",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Display: DisplayConfig{
			Markdown:     true,
			WordWrap:     80,
			PreviewChars: 160,
		},
	}
}

// DefaultModel returns the model used when generator.model is empty.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return "gpt-4o-mini"
	}
}

// DefaultAPIKeyEnv returns the environment variable consulted for a provider's key.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// ResolvedModel returns the configured model or the provider default.
func (g *GeneratorConfig) ResolvedModel() string {
	if g.Model != "" {
		return g.Model
	}
	return DefaultModel(g.Provider)
}

// APIKey reads the provider key from the configured environment variable.
func (g *GeneratorConfig) APIKey() string {
	env := g.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv(g.Provider)
	}
	return os.Getenv(env)
}

// Timeout returns the per-call timeout as a Duration
func (g *GeneratorConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// RetryInitial returns the first backoff interval as a Duration
func (g *GeneratorConfig) RetryInitial() time.Duration {
	return time.Duration(g.RetryInitialMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Generator defaults
	viper.SetDefault("generator.provider", defaults.Generator.Provider)
	viper.SetDefault("generator.model", defaults.Generator.Model)
	viper.SetDefault("generator.temperature", defaults.Generator.Temperature)
	viper.SetDefault("generator.base_url", defaults.Generator.BaseURL)
	viper.SetDefault("generator.api_key_env", defaults.Generator.APIKeyEnv)
	viper.SetDefault("generator.timeout_seconds", defaults.Generator.TimeoutSeconds)
	viper.SetDefault("generator.max_tries", defaults.Generator.MaxTries)
	viper.SetDefault("generator.retry_initial_ms", defaults.Generator.RetryInitialMs)
	viper.SetDefault("generator.requests_per_minute", defaults.Generator.RequestsPerMinute)

	// Plan defaults
	viper.SetDefault("plan.max_attempts", defaults.Plan.MaxAttempts)
	viper.SetDefault("plan.min_lines", defaults.Plan.MinLines)
	viper.SetDefault("plan.max_dropped_ratio", defaults.Plan.MaxDroppedRatio)

	// Phase defaults
	viper.SetDefault("phase.max_attempts", defaults.Phase.MaxAttempts)

	// Judge defaults
	viper.SetDefault("judge.verdict_mode", defaults.Judge.VerdictMode)

	// Synthesis defaults
	viper.SetDefault("synthesis.include_content", defaults.Synthesis.IncludeContent)

	// Team defaults
	viper.SetDefault("team.name_locale", defaults.Team.NameLocale)
	viper.SetDefault("team.max_parallel", defaults.Team.MaxParallel)

	// Artifacts defaults
	viper.SetDefault("artifacts.data_dir", defaults.Artifacts.DataDir)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)

	// Display defaults
	viper.SetDefault("display.markdown", defaults.Display.Markdown)
	viper.SetDefault("display.word_wrap", defaults.Display.WordWrap)
	viper.SetDefault("display.show_artifacts", defaults.Display.ShowArtifacts)
	viper.SetDefault("display.preview_chars", defaults.Display.PreviewChars)
	viper.SetDefault("display.theme", defaults.Display.Theme)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when it cannot be loaded
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "crewpm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crewpm"
	}
	return filepath.Join(home, ".config", "crewpm")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
