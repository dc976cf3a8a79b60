// Package tui is the interactive front end of crewpm: a text area captures
// the request, then the run's progress is followed live from the event bus.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/crewpm/internal/event"
	"github.com/Iron-Ham/crewpm/internal/tui/styles"
	"github.com/Iron-Ham/crewpm/internal/util"
)

type screen int

const (
	screenInput screen = iota
	screenRunning
	screenDone
)

// maxLogLines bounds the activity log kept in memory.
const maxLogLines = 500

// phaseRow is the sidebar view of one planned phase.
type phaseRow struct {
	name    string
	state   string
	attempt int
	max     int
}

// Model holds the TUI application state.
type Model struct {
	screen screen
	start  func(request string) tea.Cmd

	input   textarea.Model
	spinner spinner.Model
	log     viewport.Model

	width  int
	height int

	request   string
	status    string
	phases    []phaseRow
	lines     []string
	finalPath string
	err       error
	quitting  bool
}

// NewModel creates the model. start is invoked once with the submitted
// request and must return a command that runs it and reports runDoneMsg.
// A non-empty initial request skips the input screen.
func NewModel(initial string, start func(request string) tea.Cmd) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe what you need, e.g. a flyer for our coffee shop's autumn menu"
	ta.Prompt = "│ "
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(80)
	ta.SetHeight(6)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Primary

	m := Model{
		screen:  screenInput,
		start:   start,
		input:   ta,
		spinner: sp,
		log:     viewport.New(80, 20),
		status:  "waiting for request",
	}
	if initial = strings.TrimSpace(initial); initial != "" {
		m.request = initial
		m.screen = screenRunning
		m.status = "forming PM team"
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.screen == screenRunning {
		return tea.Batch(m.spinner.Tick, m.start(m.request))
	}
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(max(msg.Width-4, 20))
		m.log.Width = max(msg.Width-sidebarWidth-4, 20)
		m.log.Height = max(msg.Height-8, 5)
		m.log.SetContent(strings.Join(m.lines, "\n"))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.screen != screenRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(msg.event)
		return m, nil

	case runDoneMsg:
		m.screen = screenDone
		m.err = msg.err
		if msg.err != nil {
			m.status = "failed"
		} else {
			m.status = "completed"
		}
		return m, nil
	}

	if m.screen == screenInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.screen {
	case screenInput:
		switch msg.Type {
		case tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyCtrlS, tea.KeyCtrlD:
			request := strings.TrimSpace(m.input.Value())
			if request == "" {
				m.status = "the request must not be empty"
				return m, nil
			}
			m.request = request
			m.screen = screenRunning
			m.status = "forming PM team"
			m.input.Blur()
			return m, tea.Batch(m.spinner.Tick, m.start(request))
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case screenRunning:
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd

	default:
		switch msg.String() {
		case "q", "esc", "enter":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}
}

// apply folds a run event into the model.
func (m *Model) apply(e event.Event) {
	switch ev := e.(type) {
	case event.RunStartedEvent:
		m.addLine(styles.Muted.Render("session " + ev.SessionID))
	case event.TeamFormedEvent:
		m.addLine(fmt.Sprintf("team %s: %s / %s", ev.JobLabel, ev.Producer, ev.Reviewer))
	case event.ContextElaboratedEvent:
		m.status = "planning"
		m.addLine("request elaborated")
	case event.PlanRejectedEvent:
		m.addLine(styles.Warning.Render(fmt.Sprintf("plan attempt %d: %s", ev.Attempt, ev.Reason)))
	case event.PlanGeneratedEvent:
		m.status = "forming teams"
		m.phases = make([]phaseRow, len(ev.Phases))
		for i, name := range ev.Phases {
			m.phases[i] = phaseRow{name: name, state: "pending"}
		}
		m.addLine(fmt.Sprintf("plan: %d phases", len(ev.Phases)))
	case event.PhaseStartedEvent:
		m.status = fmt.Sprintf("phase %d/%d: %s", ev.Index, ev.Total, ev.Name)
		m.setPhase(ev.PhaseRef, "producing", 1)
		m.addLine(styles.Primary.Render(fmt.Sprintf("[%d/%d] %s", ev.Index, ev.Total, ev.Name)))
	case event.ArtifactProducedEvent:
		m.setPhase(ev.PhaseRef, "reviewing", ev.Attempt)
		m.addLine(fmt.Sprintf("  produced (attempt %d): %s", ev.Attempt, util.Preview(ev.Content, 60)))
	case event.ReviewCompletedEvent:
		m.setPhase(ev.PhaseRef, "judging", ev.Attempt)
		m.addLine(fmt.Sprintf("  reviewed: %s", util.Preview(ev.Review, 60)))
	case event.VerdictRenderedEvent:
		state := "rejected"
		if ev.Accepted {
			state = "accepted"
		}
		m.setPhase(ev.PhaseRef, state, ev.Attempt)
		m.addLine("  " + styles.Status(state) + " " + util.Preview(ev.Rationale, 60))
	case event.PhaseRetryingEvent:
		if row := m.row(ev.PhaseRef); row != nil {
			row.max = ev.MaxAttempts
		}
		m.setPhase(ev.PhaseRef, "producing", ev.NextAttempt)
	case event.PhaseAcceptedEvent:
		m.setPhase(ev.PhaseRef, "accepted", ev.Attempts)
	case event.SynthesisCompletedEvent:
		m.status = "synthesized"
		m.finalPath = ev.Path
		m.addLine(styles.SuccessMsg.Render("deliverable written to " + ev.Path))
	case event.RunCompletedEvent:
		m.addLine(styles.SuccessMsg.Render(fmt.Sprintf("run completed in %s", ev.Duration.Round(100*time.Millisecond))))
	case event.RunFailedEvent:
		if row := m.row(event.PhaseRef{Name: ev.Phase}); row != nil {
			row.state = "failed"
		}
		m.addLine(styles.ErrorMsg.Render(fmt.Sprintf("run failed (%s): %v", ev.Stage, ev.Err)))
	}
}

func (m *Model) row(ref event.PhaseRef) *phaseRow {
	if ref.Index > 0 && ref.Index <= len(m.phases) {
		return &m.phases[ref.Index-1]
	}
	for i := range m.phases {
		if m.phases[i].name == ref.Name && ref.Name != "" {
			return &m.phases[i]
		}
	}
	return nil
}

func (m *Model) setPhase(ref event.PhaseRef, state string, attempt int) {
	if row := m.row(ref); row != nil {
		row.state = state
		row.attempt = attempt
	}
}

func (m *Model) addLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

// Request returns the submitted request.
func (m Model) Request() string { return m.request }

// Err returns the run error, if the run failed.
func (m Model) Err() error { return m.err }

// FinalPath returns the deliverable path of a completed run.
func (m Model) FinalPath() string { return m.finalPath }

// Quitting reports whether the user left before the run finished.
func (m Model) Quitting() bool { return m.quitting }
