package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Iron-Ham/crewpm/internal/ai"
	"github.com/Iron-Ham/crewpm/internal/config"
	"github.com/Iron-Ham/crewpm/internal/display"
	"github.com/Iron-Ham/crewpm/internal/event"
	"github.com/Iron-Ham/crewpm/internal/logging"
	"github.com/Iron-Ham/crewpm/internal/metrics"
	"github.com/Iron-Ham/crewpm/internal/namer"
	"github.com/Iron-Ham/crewpm/internal/orchestrator"
	"github.com/Iron-Ham/crewpm/internal/session"
	"github.com/Iron-Ham/crewpm/internal/tui"
	"github.com/Iron-Ham/crewpm/internal/tui/styles"
)

var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Run a request end to end",
	Long: `Run a request through elaboration, planning, phase execution and synthesis.

The request is taken from the arguments, from stdin when it is not a
terminal, or typed into the TUI with --tui.

Examples:
  crewpm run "Make a flyer for our coffee shop's autumn menu"
  echo "Plan a team offsite" | crewpm run
  crewpm run --tui
  crewpm run --resume 20250101_120000`,
	RunE: runRun,
}

var (
	runTUI    bool
	runResume string
)

// runFlagKeys maps run flags to the config keys they override.
var runFlagKeys = map[string]string{
	"provider":       "generator.provider",
	"model":          "generator.model",
	"max-attempts":   "phase.max_attempts",
	"verdict-mode":   "judge.verdict_mode",
	"show-artifacts": "display.show_artifacts",
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.BoolVar(&runTUI, "tui", false, "capture the request and follow the run in a terminal UI")
	f.StringVar(&runResume, "resume", "", "resume an interrupted run by session ID prefix or base path")
	f.String("provider", "", "generator provider (openai, gemini)")
	f.String("model", "", "generator model")
	f.Int("max-attempts", 0, "maximum attempts per phase")
	f.String("verdict-mode", "", "verdict interpretation (contains, strict)")
	f.Bool("show-artifacts", false, "print every artifact and review in full")

	for flag, key := range runFlagKeys {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Display.Theme != "" {
		theme, err := styles.LoadThemeFile(cfg.Display.Theme)
		if err != nil {
			return err
		}
		theme.Apply()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if runTUI && !stdoutTTY {
		return errors.New("--tui requires a terminal")
	}

	request := strings.TrimSpace(strings.Join(args, " "))
	if request == "" && runResume == "" && !runTUI {
		if request, err = readRequest(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	s, err := openSession(cfg.Artifacts.DataDir, runResume)
	if err != nil {
		return err
	}
	if runResume != "" {
		m, err := session.NewStore(s).LoadManifest()
		if err != nil {
			return err
		}
		request = m.Request
	}

	logger, err := newRunLogger(cfg.Logging, s.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()
	logger = logger.WithSession(s.ID)

	m := metrics.New()
	gen, err := ai.NewFromConfig(ctx, cfg.Generator, logger, m)
	if err != nil {
		return err
	}
	names, err := namer.New(namer.Locale(cfg.Team.NameLocale))
	if err != nil {
		return err
	}

	bus := event.NewBus(logger)
	orch := orchestrator.New(gen, names, cfg,
		orchestrator.WithBus(bus),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(m),
		orchestrator.WithGeneratorInfo(cfg.Generator.Provider, cfg.Generator.ResolvedModel()),
	)

	var outcome *orchestrator.Outcome
	execute := func(ctx context.Context, request string) error {
		var err error
		if runResume != "" {
			outcome, err = orch.Resume(ctx, s.Base)
		} else {
			outcome, err = orch.RunIn(ctx, s, request)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if runTUI {
		model, err := tui.New(bus, execute, request).Run(ctx)
		if err != nil {
			return err
		}
		if model.Err() != nil {
			return model.Err()
		}
	} else {
		opts := display.OptionsFromConfig(cfg.Display)
		opts.Markdown = opts.Markdown && stdoutTTY
		display.New(out, opts, logger).Attach(bus)
		if err := execute(ctx, request); err != nil {
			return err
		}
	}

	if outcome == nil {
		_, _ = fmt.Fprintf(out, "run interrupted; resume with: crewpm run --resume %s\n", s.ID)
		return nil
	}
	_, _ = fmt.Fprintf(out, "deliverable: %s\n", outcome.FinalPath)
	return nil
}

// readRequest reads the request from stdin, which must not be a terminal.
func readRequest(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no request given: pass it as an argument, pipe it on stdin or use --tui")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read request: %w", err)
	}
	request := strings.TrimSpace(string(data))
	if request == "" {
		return "", errors.New("request is empty")
	}
	return request, nil
}

// openSession creates a new session under dataDir, or opens the one named
// by resume as a base path or session ID prefix.
func openSession(dataDir, resume string) (*session.RunSession, error) {
	if resume == "" {
		return session.New(dataDir, time.Now())
	}
	base := strings.TrimSuffix(resume, session.ManifestSuffix)
	if !session.Exists(base) {
		info, err := session.Find(dataDir, resume)
		if err != nil {
			return nil, err
		}
		base = info.Base
	}
	return session.Open(base)
}

func newRunLogger(cfg config.LoggingConfig, dir string) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(dir, cfg.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
}
