package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/crewpm/internal/config"
	"github.com/Iron-Ham/crewpm/internal/logging"
	"github.com/Iron-Ham/crewpm/internal/tui/styles"
)

var logsCmd = &cobra.Command{
	Use:   "logs [session-id]",
	Short: "View run logs",
	Long: `View and filter the debug log of a run.

By default, shows the log of the most recent run.

Examples:
  # Show the last 50 entries of the most recent run
  crewpm logs

  # Show every warning of a specific run
  crewpm logs 20250101_120000 --level warn -n 0

  # Show the generator calls made for one phase
  crewpm logs --phase "Copy" --purpose produce`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

var (
	logsTail    int
	logsLevel   string
	logsPhase   string
	logsPurpose string
	logsGrep    string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsPhase, "phase", "", "Filter by phase name")
	logsCmd.Flags().StringVar(&logsPurpose, "purpose", "", "Filter generator calls by purpose")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries whose message contains this text")
}

func runLogs(cmd *cobra.Command, args []string) error {
	if logsLevel != "" && !logging.IsValidLevel(logsLevel) {
		return fmt.Errorf("invalid level %q (valid: %s)", logsLevel, strings.Join(logging.ValidLevels(), ", "))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	info, err := resolveSession(cfg.Artifacts.DataDir, args)
	if err != nil {
		return err
	}

	entries, err := logging.ReadLogs(info.Dir, logging.LogFilter{
		Level:           logsLevel,
		Phase:           logsPhase,
		Purpose:         logsPurpose,
		MessageContains: logsGrep,
	})
	if err != nil {
		return err
	}
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		line := logging.FormatEntry(e)
		switch e.Level {
		case logging.LevelError:
			line = styles.ErrorMsg.Render(line)
		case logging.LevelWarn:
			line = styles.WarningMsg.Render(line)
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}
