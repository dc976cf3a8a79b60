package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/crewpm/internal/event"
)

// startRecorder records the requests a model starts.
type startRecorder struct {
	requests []string
}

func (s *startRecorder) start(request string) tea.Cmd {
	s.requests = append(s.requests, request)
	return func() tea.Msg { return nil }
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return out
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestModel_SubmitRequest(t *testing.T) {
	rec := &startRecorder{}
	m := NewModel("", rec.start)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.screen != screenInput || len(rec.requests) != 0 {
		t.Fatal("empty request must not start a run")
	}
	if !strings.Contains(m.View(), "must not be empty") {
		t.Error("empty submit should show a warning")
	}

	m = typeText(t, m, "coffee shop flyer")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.screen != screenRunning {
		t.Fatalf("screen = %v, want running", m.screen)
	}
	if len(rec.requests) != 1 || rec.requests[0] != "coffee shop flyer" {
		t.Errorf("started requests = %v", rec.requests)
	}
	if m.Request() != "coffee shop flyer" {
		t.Errorf("Request() = %q", m.Request())
	}
}

func TestModel_InitialRequestSkipsInput(t *testing.T) {
	rec := &startRecorder{}
	m := NewModel("  flyer  ", rec.start)
	if m.screen != screenRunning {
		t.Fatalf("screen = %v, want running", m.screen)
	}
	if cmd := m.Init(); cmd == nil {
		t.Fatal("Init() should start the run")
	}
	if len(rec.requests) != 1 || rec.requests[0] != "flyer" {
		t.Errorf("started requests = %v", rec.requests)
	}
}

func TestModel_FollowsEvents(t *testing.T) {
	m := NewModel("flyer", (&startRecorder{}).start)
	ref := event.PhaseRef{Index: 2, Total: 2, Name: "Layout"}

	for _, e := range []event.Event{
		event.NewRunStartedEvent("sid", "/tmp/base", "flyer", 0),
		event.NewPlanGeneratedEvent(1, []string{"Copy", "Layout"}, 0, "raw"),
		event.NewPhaseAcceptedEvent(event.PhaseRef{Index: 1, Total: 2, Name: "Copy"}, 1, "/tmp/base_step1_0.md"),
		event.NewPhaseStartedEvent(ref, "Designer", "lay out"),
		event.NewArtifactProducedEvent(ref, 1, "draft"),
		event.NewReviewCompletedEvent(ref, 1, "needs prices"),
		event.NewVerdictRenderedEvent(ref, 1, false, false, "missing prices"),
		event.NewPhaseRetryingEvent(ref, 2, 5),
	} {
		m = update(t, m, eventMsg{event: e})
	}

	if len(m.phases) != 2 {
		t.Fatalf("phases = %v", m.phases)
	}
	if m.phases[0].state != "accepted" {
		t.Errorf("Copy state = %q, want accepted", m.phases[0].state)
	}
	if got := m.phases[1]; got.state != "producing" || got.attempt != 2 || got.max != 5 {
		t.Errorf("Layout row = %+v", got)
	}
	if m.status != "phase 2/2: Layout" {
		t.Errorf("status = %q", m.status)
	}

	m = update(t, m, eventMsg{event: event.NewRunFailedEvent("phase", "Layout", 2, errors.New("exhausted"))})
	if m.phases[1].state != "failed" {
		t.Errorf("Layout state after failure = %q", m.phases[1].state)
	}
	if !strings.Contains(strings.Join(m.lines, "\n"), "run failed (phase): exhausted") {
		t.Errorf("log = %v", m.lines)
	}
}

func TestModel_RunDone(t *testing.T) {
	m := NewModel("flyer", (&startRecorder{}).start)
	m = update(t, m, eventMsg{event: event.NewSynthesisCompletedEvent("/tmp/base_final_0.md", "final")})
	m = update(t, m, runDoneMsg{})

	if m.screen != screenDone || m.FinalPath() != "/tmp/base_final_0.md" {
		t.Errorf("screen = %v, final = %q", m.screen, m.FinalPath())
	}
	if !strings.Contains(m.View(), "deliverable: /tmp/base_final_0.md") {
		t.Error("done view should show the deliverable path")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Error("q on the done screen should quit")
	}

	failed := update(t, NewModel("flyer", (&startRecorder{}).start), runDoneMsg{err: errors.New("boom")})
	if failed.Err() == nil || !strings.Contains(failed.View(), "boom") {
		t.Error("failed run should surface the error")
	}
}

func TestModel_CtrlCQuits(t *testing.T) {
	m := NewModel("", (&startRecorder{}).start)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil || !next.(Model).Quitting() {
		t.Error("ctrl+c should quit")
	}
	if next.(Model).View() != "" {
		t.Error("quitting view should be empty")
	}
}
