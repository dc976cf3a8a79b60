package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Iron-Ham/crewpm/internal/ai"
	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/event"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/phase"
	"github.com/Iron-Ham/crewpm/internal/team"
	"github.com/Iron-Ham/crewpm/internal/testutil"
)

var pmAgent = team.Agent{Role: "PM producer: Agent1", Goal: "run the project", Persona: "veteran PM"}

func TestPlanGenerator_RetriesShortPlans(t *testing.T) {
	short := "A / a / Writer / w\nB / b / Writer / w"
	gen := testutil.NewScriptedGenerator().On(ai.PurposePlan, short, short, flyerPlan)
	bus := event.NewBus(nil)
	events := record(bus)

	p, raw, err := NewPlanGenerator(gen, WithPlanBus(bus)).Generate(context.Background(), pmAgent, flyerRequest, "elab")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if raw != flyerPlan || len(p.Phases) != 4 {
		t.Errorf("plan = %d phases, raw = %q", len(p.Phases), raw)
	}
	if n := events.count(event.TypePlanRejected); n != 2 {
		t.Errorf("plan.rejected events = %d, want 2", n)
	}

	prompt := gen.Prompts(ai.PurposePlan)[0]
	for _, want := range []string{flyerRequest, "elab", pmAgent.Role} {
		if !strings.Contains(prompt, want) {
			t.Errorf("plan prompt missing %q", want)
		}
	}
}

func TestPlanGenerator_Exhausted(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr []error
	}{
		{
			name:    "always too short",
			reply:   "A / a / Writer / w",
			wantErr: []error{crewerrors.ErrPlanTooShort},
		},
		{
			name: "duplicate phase names",
			reply: "A / a / Writer / w\n\nB / b / Writer / w\n\nA / again / Writer / w\n\n" +
				"C / c / Writer / w\n\nD / d / Writer / w\n\nE / e / Writer / w",
			wantErr: []error{crewerrors.ErrPlanInvalid, crewerrors.ErrDuplicatePhase},
		},
		{
			name:    "no phase records",
			reply:   "one\ntwo\nthree\nfour\nfive\nsix",
			wantErr: []error{crewerrors.ErrPlanInvalid, crewerrors.ErrEmptyPlan},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := testutil.NewScriptedGenerator().Always(ai.PurposePlan, tt.reply)
			_, _, err := NewPlanGenerator(gen, WithPlanLimits(3, 5, 0)).
				Generate(context.Background(), pmAgent, "r", "e")

			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("Generate() error = %v, want %v", err, want)
				}
			}
			var planErr *crewerrors.PlanError
			if !errors.As(err, &planErr) || planErr.Attempts != 3 {
				t.Errorf("PlanError = %+v, want 3 attempts", planErr)
			}
			if got := gen.Count(ai.PurposePlan); got != 3 {
				t.Errorf("plan calls = %d, want 3", got)
			}
		})
	}
}

func TestPlanGenerator_WarnsOnDroppedLines(t *testing.T) {
	noisy := "Intro\nMore intro\nStill intro\nNotes\n" +
		"A / a / Writer / w\nB / b / Designer / d"
	gen := testutil.NewScriptedGenerator().On(ai.PurposePlan, noisy)
	bus := event.NewBus(nil)

	var rejected []event.PlanRejectedEvent
	bus.Subscribe(event.TypePlanRejected, func(e event.Event) {
		rejected = append(rejected, e.(event.PlanRejectedEvent))
	})

	p, _, err := NewPlanGenerator(gen, WithPlanBus(bus)).Generate(context.Background(), pmAgent, "r", "e")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(p.Phases) != 2 || len(p.Dropped) != 4 {
		t.Errorf("phases = %d, dropped = %d", len(p.Phases), len(p.Dropped))
	}
	if len(rejected) != 1 || rejected[0].Retry {
		t.Errorf("rejected = %+v, want one non-retry warning", rejected)
	}
}

func TestPlanGenerator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := testutil.NewScriptedGenerator().Always(ai.PurposePlan, flyerPlan)

	_, _, err := NewPlanGenerator(gen).Generate(ctx, pmAgent, "r", "e")
	if !crewerrors.IsCanceled(err) {
		t.Errorf("Generate() error = %v, want canceled", err)
	}
}

func TestElaborator(t *testing.T) {
	gen := testutil.NewScriptedGenerator().On(ai.PurposeElaborate, "interpreted")
	out, err := NewElaborator(gen).Elaborate(context.Background(), pmAgent, flyerRequest)
	if err != nil || out != "interpreted" {
		t.Fatalf("Elaborate() = %q, %v", out, err)
	}
	prompt := gen.Prompts(ai.PurposeElaborate)[0]
	if !strings.Contains(prompt, flyerRequest) || !strings.Contains(prompt, pmAgent.Persona) {
		t.Errorf("elaborate prompt = %q", prompt)
	}

	boom := errors.New("boom")
	failing := testutil.NewScriptedGenerator().OnError(ai.PurposeElaborate, boom)
	if _, err := NewElaborator(failing).Elaborate(context.Background(), pmAgent, "r"); !errors.Is(err, boom) {
		t.Errorf("Elaborate() error = %v, want boom", err)
	}
}

func TestSynthesizer(t *testing.T) {
	outputs := []phase.Output{
		{Name: "Copy", Content: "the copy"},
		{Name: "Layout", Content: "the layout"},
	}

	tests := []struct {
		name           string
		includeContent bool
		wantContent    bool
	}{
		{name: "with content", includeContent: true, wantContent: true},
		{name: "names only", includeContent: false, wantContent: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := testutil.NewScriptedGenerator().On(ai.PurposeSynthesize, "deliverable")
			out, err := NewSynthesizer(gen, tt.includeContent).Synthesize(context.Background(), pmAgent, "elab", outputs)
			if err != nil || out != "deliverable" {
				t.Fatalf("Synthesize() = %q, %v", out, err)
			}
			prompt := gen.Prompts(ai.PurposeSynthesize)[0]
			if !strings.Contains(prompt, "1. Copy\n2. Layout") {
				t.Errorf("prompt missing ordered names:\n%s", prompt)
			}
			if got := strings.Contains(prompt, "the layout"); got != tt.wantContent {
				t.Errorf("prompt contains artifact = %v, want %v", got, tt.wantContent)
			}
		})
	}

	if _, err := NewSynthesizer(testutil.NewScriptedGenerator(), true).Synthesize(context.Background(), pmAgent, "e", nil); err == nil {
		t.Error("Synthesize() with no outputs should fail")
	}
}
