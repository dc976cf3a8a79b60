package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/crewpm/internal/config"
	"github.com/Iron-Ham/crewpm/internal/session"
	"github.com/Iron-Ham/crewpm/internal/tui/styles"
	"github.com/Iron-Ham/crewpm/internal/util"
)

var followCmd = &cobra.Command{
	Use:   "follow [session-id]",
	Short: "Follow the artifacts of a run from another terminal",
	Long: `Print each artifact as a run writes it. Without an ID the newest run is
followed. Following stops when the run's manifest reports that it finished.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFollow,
}

var followPreview int

func init() {
	rootCmd.AddCommand(followCmd)
	followCmd.Flags().IntVar(&followPreview, "preview", 80, "characters of each artifact to print (0 for names only)")
}

func runFollow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	info, err := resolveSession(cfg.Artifacts.DataDir, args)
	if err != nil {
		return err
	}
	s, err := session.Open(info.Base)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "following %s (%s)\n", info.ID, info.Status)
	if info.Status != session.StatusRunning {
		return nil
	}

	w, err := session.NewWatcher(s)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.Dir, err)
	}
	defer w.Stop()

	finished := make(chan session.Status, 1)
	w.OnChange(func(c session.Change) {
		if c.IsManifest() {
			m, err := session.ReadManifest(c.Path)
			if err == nil && m.Status != session.StatusRunning {
				select {
				case finished <- m.Status:
				default:
				}
			}
			return
		}
		_, _ = fmt.Fprintf(out, "%s %s\n", styles.Muted.Render(c.Time.Format("15:04:05")), filepath.Base(c.Path))
		if followPreview > 0 {
			if data, err := os.ReadFile(c.Path); err == nil {
				_, _ = fmt.Fprintf(out, "  %s\n", util.Preview(string(data), followPreview))
			}
		}
	})
	w.OnError(func(err error) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
	})

	w.Start()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if status, ok := awaitFinish(ctx, s, finished); ok {
		_, _ = fmt.Fprintf(out, "run %s\n", styles.Status(string(status)))
	}
	return nil
}

// awaitFinish blocks until the run leaves the running state or ctx ends.
// The manifest is read again first, since the run may have finished before
// the watcher started.
func awaitFinish(ctx context.Context, s *session.RunSession, finished <-chan session.Status) (session.Status, bool) {
	if m, err := session.ReadManifest(s.Path(session.ManifestSuffix)); err == nil && m.Status != session.StatusRunning {
		return m.Status, true
	}
	select {
	case status := <-finished:
		return status, true
	case <-ctx.Done():
		return "", false
	}
}

// resolveSession returns the run named by args[0], or the newest run.
func resolveSession(dataDir string, args []string) (*session.Info, error) {
	if len(args) == 1 {
		return session.Find(dataDir, args[0])
	}
	infos, err := session.Discover(dataDir)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("no runs found in %s", dataDir)
	}
	return infos[0], nil
}
