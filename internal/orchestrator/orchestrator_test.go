package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Iron-Ham/crewpm/internal/ai"
	"github.com/Iron-Ham/crewpm/internal/config"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/event"
	"github.com/Iron-Ham/crewpm/internal/metrics"
	"github.com/Iron-Ham/crewpm/internal/session"
	"github.com/Iron-Ham/crewpm/internal/testutil"
)

const flyerRequest = "Create a 1-page marketing flyer for a coffee shop"

const flyerPlan = `Process plan for the coffee shop flyer
(phases in flow order)
Market Research / collect the shop's selling points into research.md / Marketer / market researcher

Copy Draft / write the flyer copy into copy.md / Writer / copywriter

Layout Spec / lay out the flyer in layout.md / Designer / layout designer

Final Flyer / produce the print-ready flyer print.md / Designer / print designer
`

var flyerPhases = []string{"Market Research", "Copy Draft", "Layout Spec", "Final Flyer"}

type seqNames struct {
	mu sync.Mutex
	n  int
}

func (s *seqNames) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("Agent%d", s.n)
}

// currentPhase extracts the phase name from a producer prompt.
func currentPhase(prompt string) string {
	_, rest, ok := strings.Cut(prompt, "## Current phase\n")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "\n")
	return name
}

func artifactFor(prompt string) (string, error) {
	return "artifact of " + currentPhase(prompt), nil
}

// flyerGenerator accepts every phase on the first attempt.
func flyerGenerator() *testutil.ScriptedGenerator {
	return testutil.NewScriptedGenerator().
		Always(ai.PurposePersona, "A seasoned professional.").
		On(ai.PurposeElaborate, "ELABORATION: autumn menu flyer for walk-in customers").
		On(ai.PurposePlan, flyerPlan).
		Fallback(ai.PurposeProduce, artifactFor).
		Always(ai.PurposeReview, "Looks complete.").
		Always(ai.PurposeJudge, "Verdict: YES\nReason: complete").
		Always(ai.PurposeSynthesize, "# Autumn flyer")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Artifacts.DataDir = t.TempDir()
	return cfg
}

type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func record(bus *event.Bus) *eventLog {
	l := &eventLog{}
	bus.SubscribeAll(func(e event.Event) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.events = append(l.events, e)
	})
	return l
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.EventType()
	}
	return out
}

func (l *eventLog) count(eventType string) int {
	n := 0
	for _, t := range l.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

func TestRun_CoffeeShopFlyer(t *testing.T) {
	cfg := testConfig(t)
	gen := flyerGenerator()
	m := metrics.New()
	o := New(gen, &seqNames{}, cfg, WithMetrics(m), WithGeneratorInfo("openai", "gpt-4o-mini"))
	events := record(o.Bus())

	out, err := o.Run(context.Background(), flyerRequest)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if diff := cmp.Diff(flyerPhases, out.Phases); diff != "" {
		t.Errorf("accepted phases mismatch (-want +got):\n%s", diff)
	}
	if out.Final != "# Autumn flyer" {
		t.Errorf("Final = %q", out.Final)
	}
	if out.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", out.Attempts)
	}

	for purpose, want := range map[ai.Purpose]int{
		ai.PurposePersona:    8,
		ai.PurposeElaborate:  1,
		ai.PurposePlan:       1,
		ai.PurposeProduce:    4,
		ai.PurposeReview:     4,
		ai.PurposeJudge:      4,
		ai.PurposeSynthesize: 1,
	} {
		if got := gen.Count(purpose); got != want {
			t.Errorf("%s calls = %d, want %d", purpose, got, want)
		}
	}

	calls := gen.Calls()
	if last := calls[len(calls)-1]; last.Purpose != ai.PurposeSynthesize {
		t.Errorf("last call purpose = %s, want synthesize", last.Purpose)
	}
	synth := gen.Prompts(ai.PurposeSynthesize)[0]
	wants := []string{
		"ELABORATION: autumn menu flyer",
		"1. Market Research\n2. Copy Draft\n3. Layout Spec\n4. Final Flyer",
		"artifact of Market Research",
		"artifact of Final Flyer",
	}
	for _, want := range wants {
		if !strings.Contains(synth, want) {
			t.Errorf("synthesis prompt missing %q", want)
		}
	}

	dir := filepath.Dir(out.Base)
	prefix := filepath.Base(out.Base)
	files := testutil.FilesWithPrefix(t, dir, prefix)
	for _, suffix := range []string{
		session.ContextSuffix, session.RolesSuffix, session.TeamSuffix,
		session.ManifestSuffix, session.MetricsSuffix,
		session.StepSuffix(1, 0), session.StepSuffix(4, 1), session.FinalSuffix(0),
	} {
		if !contains(files, prefix+suffix) {
			t.Errorf("missing artifact %s in %v", prefix+suffix, files)
		}
	}
	if got := testutil.ReadFile(t, dir, prefix+session.StepSuffix(3, 0)); got != "artifact of Layout Spec" {
		t.Errorf("step3_0 = %q", got)
	}
	if got := testutil.ReadFile(t, dir, prefix+session.RolesSuffix); got != flyerPlan {
		t.Errorf("roles file = %q", got)
	}
	teamFile := testutil.ReadFile(t, dir, prefix+session.TeamSuffix)
	if strings.Count(teamFile, " team\n") != 3 || strings.Contains(teamFile, "PM team") {
		t.Errorf("team file should hold the three plan teams only:\n%s", teamFile)
	}

	manifest, err := session.ReadManifest(out.Base + session.ManifestSuffix)
	if err != nil {
		t.Fatal(err)
	}
	if manifest.Status != session.StatusCompleted || manifest.CompletedCount() != 4 {
		t.Errorf("manifest = %+v", manifest)
	}
	if manifest.Provider != "openai" || manifest.FinalPath != out.FinalPath {
		t.Errorf("manifest provider/final = %q, %q", manifest.Provider, manifest.FinalPath)
	}

	types := events.types()
	if types[0] != event.TypeRunStarted || types[len(types)-1] != event.TypeRunCompleted {
		t.Errorf("event order = %v", types)
	}
	if n := events.count(event.TypePhaseAccepted); n != 4 {
		t.Errorf("phase.accepted events = %d, want 4", n)
	}
	if n := events.count(event.TypePhaseRetrying); n != 0 {
		t.Errorf("phase.retrying events = %d, want 0", n)
	}
	if n := events.count(event.TypeTeamFormed); n != 4 {
		t.Errorf("team.formed events = %d, want 4 (PM + 3)", n)
	}
}

func TestRun_EmptyRequest(t *testing.T) {
	o := New(flyerGenerator(), &seqNames{}, testConfig(t))
	_, err := o.Run(context.Background(), "   ")
	if !errors.Is(err, crewerrors.ErrInvalidInput) {
		t.Errorf("Run() error = %v, want ErrInvalidInput", err)
	}
}

func TestRun_PhaseExhausted(t *testing.T) {
	cfg := testConfig(t)
	cfg.Phase.MaxAttempts = 2
	gen := flyerGenerator()
	gen.Fallback(ai.PurposeJudge, func(prompt string) (string, error) {
		if strings.Contains(prompt, "artifact of Copy Draft") {
			return "Verdict: NO\nReason: too vague", nil
		}
		return "Verdict: YES", nil
	})
	o := New(gen, &seqNames{}, cfg)
	events := record(o.Bus())

	_, err := o.Run(context.Background(), flyerRequest)
	if !errors.Is(err, crewerrors.ErrPhaseExhausted) {
		t.Fatalf("Run() error = %v, want ErrPhaseExhausted", err)
	}
	if gen.Count(ai.PurposeSynthesize) != 0 {
		t.Error("synthesis must not run after a failed phase")
	}

	var failed event.RunFailedEvent
	for _, e := range events.events {
		if f, ok := e.(event.RunFailedEvent); ok {
			failed = f
		}
	}
	if failed.Stage != string(StagePhase) || failed.Phase != "Copy Draft" || failed.Attempt != 2 {
		t.Errorf("RunFailed = %+v", failed)
	}

	infos, err := session.Discover(cfg.Artifacts.DataDir)
	if err != nil || len(infos) != 1 {
		t.Fatalf("Discover() = %v, %v", infos, err)
	}
	if infos[0].Status != session.StatusFailed || infos[0].Completed != 1 {
		t.Errorf("session info = %+v", infos[0])
	}
}

func TestRun_Canceled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	gen := flyerGenerator()
	gen.Fallback(ai.PurposeProduce, func(prompt string) (string, error) {
		cancel()
		return artifactFor(prompt)
	})

	_, err := New(gen, &seqNames{}, cfg).Run(ctx, flyerRequest)
	if !crewerrors.IsCanceled(err) {
		t.Fatalf("Run() error = %v, want canceled", err)
	}
	infos, _ := session.Discover(cfg.Artifacts.DataDir)
	if len(infos) != 1 || infos[0].Status != session.StatusCanceled {
		t.Errorf("sessions = %+v", infos)
	}
}

func TestResume(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("provider unavailable")

	first := flyerGenerator()
	first.Fallback(ai.PurposeProduce, func(prompt string) (string, error) {
		if currentPhase(prompt) == "Copy Draft" {
			return "", boom
		}
		return artifactFor(prompt)
	})
	if _, err := New(first, &seqNames{}, cfg).Run(context.Background(), flyerRequest); !errors.Is(err, boom) {
		t.Fatalf("first Run() error = %v, want provider failure", err)
	}

	infos, err := session.Discover(cfg.Artifacts.DataDir)
	if err != nil || len(infos) != 1 {
		t.Fatalf("Discover() = %v, %v", infos, err)
	}

	// No elaborate or plan replies: a resumed run must reuse the stored ones.
	second := testutil.NewScriptedGenerator().
		Always(ai.PurposePersona, "persona").
		Fallback(ai.PurposeProduce, artifactFor).
		Always(ai.PurposeReview, "ok").
		Always(ai.PurposeJudge, "Verdict: YES").
		Always(ai.PurposeSynthesize, "final")
	o := New(second, &seqNames{}, cfg)
	events := record(o.Bus())

	out, err := o.Resume(context.Background(), infos[0].Base)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if out.SessionID != infos[0].ID {
		t.Errorf("SessionID = %q, want %q", out.SessionID, infos[0].ID)
	}
	if diff := cmp.Diff(flyerPhases, out.Phases); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}

	produced := second.Prompts(ai.PurposeProduce)
	if len(produced) != 3 {
		t.Fatalf("produce calls = %d, want 3", len(produced))
	}
	if currentPhase(produced[0]) != "Copy Draft" || !strings.Contains(produced[0], "artifact of Market Research") {
		t.Errorf("first resumed prompt should be Copy Draft with the stored Market Research artifact:\n%s", produced[0])
	}

	started := events.events[0].(event.RunStartedEvent)
	if started.ResumeFrom != 2 {
		t.Errorf("ResumeFrom = %d, want 2", started.ResumeFrom)
	}

	if _, err := o.Resume(context.Background(), infos[0].Base); !errors.Is(err, crewerrors.ErrInvalidInput) {
		t.Errorf("Resume() of completed session error = %v, want ErrInvalidInput", err)
	}
}

func TestResume_MissingSession(t *testing.T) {
	o := New(flyerGenerator(), &seqNames{}, testConfig(t))
	base := t.TempDir() + "/missing/session_20250101_120000_abcd1234"
	if _, err := o.Resume(context.Background(), base); err == nil {
		t.Error("Resume() of missing session should fail")
	}
}

func TestRun_LockedSession(t *testing.T) {
	cfg := testConfig(t)
	now := time.Date(2025, 10, 1, 9, 30, 0, 0, time.Local)
	s, err := session.New(cfg.Artifacts.DataDir, now)
	if err != nil {
		t.Fatal(err)
	}
	lock, err := session.AcquireLock(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	st := newRunState(flyerRequest, s)
	if _, err := New(flyerGenerator(), &seqNames{}, cfg).run(context.Background(), st); !errors.Is(err, session.ErrSessionLocked) {
		t.Errorf("run() on locked session error = %v, want ErrSessionLocked", err)
	}
	if _, err := os.Stat(s.Path(session.ManifestSuffix)); !os.IsNotExist(err) {
		t.Error("locked run must not write a manifest")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
