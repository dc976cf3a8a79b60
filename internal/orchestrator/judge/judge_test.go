package judge

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Iron-Ham/crewpm/internal/ai"
	"github.com/Iron-Ham/crewpm/internal/config"
	"github.com/Iron-Ham/crewpm/internal/logging"
	"github.com/Iron-Ham/crewpm/internal/team"
	"github.com/Iron-Ham/crewpm/internal/testutil"
)

func TestParseVerdict_Contains(t *testing.T) {
	tests := []struct {
		reply string
		want  Verdict
	}{
		{"Verdict: YES\nReason: complete.", Accept},
		{"Verdict: NO\nReason: missing prices.", Reject},
		{"not NO but close", Reject},
		{"Verdict: yes, no concerns", Accept},
		{"NOTE: all good. Verdict: YES", Reject},
		{"", Accept},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got := ParseVerdict(tt.reply, config.VerdictContains)
			if got.Verdict != tt.want {
				t.Errorf("ParseVerdict(%q) = %s, want %s", tt.reply, got.Verdict, tt.want)
			}
			if got.Ambiguous {
				t.Error("contains mode never reports ambiguity")
			}
		})
	}
}

func TestParseVerdict_Strict(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		want          Verdict
		wantAmbiguous bool
	}{
		{"yes line", "Verdict: YES\nReason: complete.", Accept, false},
		{"no line", "Verdict: NO\nReason: thin.", Reject, false},
		{"bullet line", "- Verdict: YES\n- Reason: NO issues found", Accept, false},
		{"NOTE prefix does not reject", "NOTE: looks fine.\nVerdict: YES", Accept, false},
		{"lowercase token", "verdict: yes", Accept, false},
		{"no verdict line uses first token", "YES. It is complete, NO changes needed.", Accept, false},
		{"no token", "It is hard to say.", Reject, true},
		{"empty verdict line falls back to reply", "Verdict:\nNO, the layout is missing.", Reject, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVerdict(tt.reply, config.VerdictStrict)
			if got.Verdict != tt.want || got.Ambiguous != tt.wantAmbiguous {
				t.Errorf("ParseVerdict(%q) = %s ambiguous=%v, want %s ambiguous=%v",
					tt.reply, got.Verdict, got.Ambiguous, tt.want, tt.wantAmbiguous)
			}
		})
	}
}

func TestParseVerdict_Rationale(t *testing.T) {
	got := ParseVerdict("Verdict: NO\nReason:  The prices are missing. ", config.VerdictContains)
	if got.Rationale != "The prices are missing." {
		t.Errorf("Rationale = %q", got.Rationale)
	}
	if got := ParseVerdict("  looks good  ", config.VerdictContains); got.Rationale != "looks good" {
		t.Errorf("Rationale without label = %q", got.Rationale)
	}
}

func TestJudge_Evaluate(t *testing.T) {
	gen := testutil.NewScriptedGenerator().On(ai.PurposeJudge, "Verdict: YES\nReason: fine")
	j := New(gen, config.VerdictContains, WithAgent(team.Agent{Role: "PM reviewer: Kai"}))

	res, err := j.Evaluate(context.Background(), "ARTIFACT", "REVIEW")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Accepted() || res.Rationale != "fine" {
		t.Errorf("Evaluate() = %+v", res)
	}
	prompts := gen.Prompts(ai.PurposeJudge)
	if len(prompts) != 1 {
		t.Fatalf("judge calls = %d, want 1", len(prompts))
	}
	for _, want := range []string{"You are PM reviewer: Kai.", "ARTIFACT", "REVIEW"} {
		if !strings.Contains(prompts[0], want) {
			t.Errorf("judge prompt missing %q", want)
		}
	}
}

func TestJudge_EvaluateAmbiguousIsLogged(t *testing.T) {
	var buf bytes.Buffer
	gen := testutil.NewScriptedGenerator().On(ai.PurposeJudge, "maybe")
	j := New(gen, config.VerdictStrict, WithLogger(logging.NewWriterLogger(&buf, logging.LevelDebug)))

	res, err := j.Evaluate(context.Background(), "A", "R")
	if err != nil {
		t.Fatalf("ambiguous verdict should not be an error: %v", err)
	}
	if res.Accepted() || !res.Ambiguous {
		t.Errorf("Evaluate() = %+v, want ambiguous reject", res)
	}
	if !strings.Contains(buf.String(), "ambiguous verdict") {
		t.Errorf("log = %q, want ambiguous warning", buf.String())
	}
}

func TestJudge_EvaluateError(t *testing.T) {
	boom := errors.New("boom")
	gen := testutil.NewScriptedGenerator().OnError(ai.PurposeJudge, boom)

	if _, err := New(gen, config.VerdictContains).Evaluate(context.Background(), "A", "R"); !errors.Is(err, boom) {
		t.Errorf("Evaluate() error = %v, want boom", err)
	}
}
