// Package display renders run progress to a terminal or any io.Writer.
//
// A Presenter subscribes to the run's event bus and prints one styled status
// line per event. Elaborations, artifacts and the final deliverable are shown
// in full when configured, as glamour-rendered Markdown on a terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/Iron-Ham/crewpm/internal/config"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/event"
	"github.com/Iron-Ham/crewpm/internal/logging"
	"github.com/Iron-Ham/crewpm/internal/tui/styles"
	"github.com/Iron-Ham/crewpm/internal/util"
)

// Options controls what the presenter prints.
type Options struct {
	// Markdown renders long text with glamour. Callers should clear it when
	// the writer is not a terminal.
	Markdown      bool
	WordWrap      int
	ShowArtifacts bool
	PreviewChars  int
}

// OptionsFromConfig maps the display config section to Options.
func OptionsFromConfig(cfg config.DisplayConfig) Options {
	return Options{
		Markdown:      cfg.Markdown,
		WordWrap:      cfg.WordWrap,
		ShowArtifacts: cfg.ShowArtifacts,
		PreviewChars:  cfg.PreviewChars,
	}
}

// Presenter prints run events. It is safe for concurrent use.
type Presenter struct {
	mu       sync.Mutex
	w        io.Writer
	opts     Options
	renderer *glamour.TermRenderer
	logger   *logging.Logger
}

// New creates a Presenter writing to w. If the Markdown renderer cannot be
// created, long text is printed as plain wrapped text.
func New(w io.Writer, opts Options, logger *logging.Logger) *Presenter {
	if logger == nil {
		logger = logging.NopLogger()
	}
	p := &Presenter{w: w, opts: opts, logger: logger}
	if opts.Markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(opts.WordWrap),
		)
		if err != nil {
			logger.Warn("markdown renderer unavailable", "error", err)
		} else {
			p.renderer = r
		}
	}
	return p
}

// Attach subscribes the presenter to every event on bus and returns the
// subscription ID.
func (p *Presenter) Attach(bus *event.Bus) string {
	return bus.SubscribeAll(p.Handle)
}

// Handle prints e.
func (p *Presenter) Handle(e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev := e.(type) {
	case event.RunStartedEvent:
		p.println(styles.Header.Render("crewpm run " + ev.SessionID))
		p.println(styles.Muted.Render("artifacts: " + ev.Base + "_*"))
		if ev.ResumeFrom > 1 {
			p.println(styles.WarningMsg.Render(fmt.Sprintf("resuming from phase %d", ev.ResumeFrom)))
		}

	case event.TeamFormedEvent:
		p.println(fmt.Sprintf("%s %s: %s / %s",
			styles.Accent.Render("team"), ev.JobLabel, ev.Producer, ev.Reviewer))

	case event.ContextElaboratedEvent:
		p.println(styles.Title.Render("Request elaboration"))
		p.body(ev.Elaboration)

	case event.PlanRejectedEvent:
		action := "regenerating"
		if !ev.Retry {
			action = "kept"
		}
		p.println(styles.WarningMsg.Render(fmt.Sprintf("⚠ plan attempt %d (%d lines): %s; %s",
			ev.Attempt, ev.Lines, ev.Reason, action)))

	case event.PlanGeneratedEvent:
		p.println(styles.Title.Render(fmt.Sprintf("Process plan: %d phases", len(ev.Phases))))
		for i, name := range ev.Phases {
			p.println(fmt.Sprintf("  %d. %s", i+1, name))
		}
		if ev.Dropped > 0 {
			p.println(styles.Muted.Render(fmt.Sprintf("  (%d lines ignored)", ev.Dropped)))
		}

	case event.PhaseStartedEvent:
		p.println("")
		p.println(styles.Header.Render(fmt.Sprintf("[%d/%d] %s", ev.Index, ev.Total, ev.Name)))
		p.println(styles.Subtitle.Render(ev.JobLabel + ": " + ev.Description))

	case event.ArtifactProducedEvent:
		p.status("producing", ev.Attempt, ev.Content)
		if p.opts.ShowArtifacts {
			p.body(ev.Content)
		}

	case event.ReviewCompletedEvent:
		p.status("reviewing", ev.Attempt, ev.Review)
		if p.opts.ShowArtifacts {
			p.body(ev.Review)
		}

	case event.VerdictRenderedEvent:
		state := "rejected"
		if ev.Accepted {
			state = "accepted"
		}
		line := fmt.Sprintf("%s  %s", styles.Status(state), util.Preview(ev.Rationale, p.opts.PreviewChars))
		if ev.Ambiguous {
			line += styles.Muted.Render(" (ambiguous verdict)")
		}
		p.println(strings.TrimRight(line, " "))

	case event.PhaseRetryingEvent:
		p.println(fmt.Sprintf("%s  attempt %d of %d", styles.Status("retrying"), ev.NextAttempt, ev.MaxAttempts))

	case event.PhaseAcceptedEvent:
		p.println(styles.SuccessMsg.Render(fmt.Sprintf("✓ %s accepted after %s", ev.Name, plural(ev.Attempts, "attempt"))))
		if ev.ArtifactPath != "" {
			p.println(styles.Muted.Render("  " + ev.ArtifactPath))
		}

	case event.SynthesisCompletedEvent:
		p.println("")
		p.println(styles.Title.Render("Deliverable"))
		p.println(p.markdown(ev.Content))
		p.println(styles.Muted.Render(ev.Path))

	case event.RunCompletedEvent:
		p.println(styles.SuccessMsg.Render(fmt.Sprintf("run completed: %s in %s",
			plural(ev.Phases, "phase"), ev.Duration.Round(100*time.Millisecond))))

	case event.RunFailedEvent:
		where := ev.Stage
		if ev.Phase != "" {
			where = fmt.Sprintf("phase %q, attempt %d", ev.Phase, ev.Attempt)
		}
		p.println(failureLine(where, ev.Err))
	}
}

// failureLine renders a fatal error. The error text, including any provider
// message, is always shown; errors not meant for users point at the log.
func failureLine(where string, err error) string {
	if crewerrors.IsCanceled(err) {
		return styles.WarningMsg.Render(fmt.Sprintf("⏹ run canceled (%s)", where))
	}
	msg := fmt.Sprintf("run failed (%s): %v", where, err)
	if !crewerrors.IsUserFacing(err) {
		msg += " (details in debug.log)"
	}
	if crewerrors.GetSeverity(err) < crewerrors.SeverityError {
		return styles.WarningMsg.Render("⚠ " + msg)
	}
	return styles.ErrorMsg.Render("✗ " + msg)
}

func (p *Presenter) status(state string, attempt int, content string) {
	line := fmt.Sprintf("%s  attempt %d", styles.Status(state), attempt)
	if !p.opts.ShowArtifacts {
		if preview := util.Preview(content, p.opts.PreviewChars); preview != "" {
			line += styles.Muted.Render("  " + preview)
		}
	}
	p.println(line)
}

// body prints long text in full, or as a preview when artifacts are hidden.
func (p *Presenter) body(text string) {
	if p.opts.ShowArtifacts {
		p.println(p.markdown(text))
		return
	}
	if preview := util.Preview(text, p.opts.PreviewChars); preview != "" {
		p.println(styles.Muted.Render(preview))
	}
}

func (p *Presenter) markdown(text string) string {
	if p.renderer != nil {
		out, err := p.renderer.Render(text)
		if err == nil {
			return strings.TrimRight(out, "\n")
		}
		p.logger.Debug("markdown render failed", "error", err)
	}
	return util.Wrap(text, p.opts.WordWrap)
}

func (p *Presenter) println(s string) {
	if _, err := fmt.Fprintln(p.w, s); err != nil {
		p.logger.Debug("display write failed", "error", err)
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
