package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/crewpm/internal/config"
	"github.com/Iron-Ham/crewpm/internal/session"
	"github.com/Iron-Ham/crewpm/internal/tui/styles"
	"github.com/Iron-Ham/crewpm/internal/util"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List runs in the data directory",
	Long: `List the runs found in the data directory, newest first, with their
status and how many phases were accepted. Runs that stopped early can be
resumed with "crewpm run --resume <id>".`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	infos, err := session.Discover(cfg.Artifacts.DataDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		_, _ = fmt.Fprintf(out, "No runs found in %s\n", cfg.Artifacts.DataDir)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Found %d run(s):\n\n", len(infos))
	for _, info := range infos {
		status := styles.Status(string(info.Status))
		if info.IsLocked {
			status += " (locked)"
		}
		_, _ = fmt.Fprintf(out, "  Run: %s\n", info.ID)
		_, _ = fmt.Fprintf(out, "    Request: %s\n", util.Preview(info.Request, 60))
		_, _ = fmt.Fprintf(out, "    Created: %s\n", info.Created.Format(time.RFC822))
		_, _ = fmt.Fprintf(out, "    Status:  %s\n", status)
		_, _ = fmt.Fprintf(out, "    Phases:  %d/%d accepted\n", info.Completed, info.Total)
		if info.FinalPath != "" {
			_, _ = fmt.Fprintf(out, "    Final:   %s\n", info.FinalPath)
		}
		_, _ = fmt.Fprintln(out)
	}
	return nil
}
