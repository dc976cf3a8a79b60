package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/session"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	planParseYAML = false
	logsTail, logsLevel, logsPhase, logsPurpose, logsGrep = 50, "", "", "", ""

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

const testPlan = `Process plan
Research / Study the market / Marketer / Lead
Copy / Write the text / Writer / Copywriter
a line without separators
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "crewpm" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "crewpm")
	}

	expected := []string{"run", "sessions", "follow", "plan", "config", "logs"}
	cmds := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		cmds[c.Name()] = true
	}
	for _, name := range expected {
		if !cmds[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRunCommand_FlagsBound(t *testing.T) {
	for flag := range runFlagKeys {
		if runCmd.Flags().Lookup(flag) == nil {
			t.Errorf("run has no --%s flag", flag)
		}
	}
	for _, flag := range []string{"tui", "resume"} {
		if runCmd.Flags().Lookup(flag) == nil {
			t.Errorf("run has no --%s flag", flag)
		}
	}
}

func TestPlanParse(t *testing.T) {
	path := writeFile(t, "roles.md", testPlan)

	out, err := executeCommand(t, rootCmd, "plan", "parse", path)
	if err != nil {
		t.Fatalf("plan parse error = %v\noutput: %s", err, out)
	}
	for _, want := range []string{
		"Phases (2):",
		"1. Research [Marketer]",
		"2. Copy [Writer]",
		"Teams (2):",
		"Dropped lines (2 of 4):",
		"a line without separators",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlanParse_YAML(t *testing.T) {
	path := writeFile(t, "roles.md", testPlan)

	out, err := executeCommand(t, rootCmd, "plan", "parse", "--yaml", path)
	if err != nil {
		t.Fatalf("plan parse --yaml error = %v", err)
	}
	var doc planDocument
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	want := map[string][]string{"Marketer": {"Research"}, "Writer": {"Copy"}}
	if diff := cmp.Diff(want, doc.Teams); diff != "" {
		t.Errorf("teams mismatch (-want +got):\n%s", diff)
	}
	if len(doc.Phases) != 2 || doc.Phases[1].RoleLabel != "Copywriter" {
		t.Errorf("phases = %+v", doc.Phases)
	}
}

func TestPlanParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "no records", content: "just prose\nmore prose\n", wantErr: crewerrors.ErrEmptyPlan},
		{name: "duplicate phase", content: "A / x / J / R\nA / y / J / R\n", wantErr: crewerrors.ErrDuplicatePhase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "roles.md", tt.content)
			_, err := executeCommand(t, rootCmd, "plan", "parse", path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func newManifestSession(t *testing.T, dataDir string, status session.Status) *session.RunSession {
	t.Helper()
	s, err := session.New(dataDir, time.Date(2025, 10, 1, 8, 30, 0, 0, time.Local))
	if err != nil {
		t.Fatal(err)
	}
	err = session.NewStore(s).SaveManifest(&session.Manifest{
		SessionID: s.ID,
		Request:   "Make a flyer for the autumn menu",
		Status:    status,
		CreatedAt: s.Timestamp,
		Phases: []session.PhaseRecord{
			{Index: 1, Name: "Research", JobLabel: "Marketer", Accepted: true},
			{Index: 2, Name: "Copy", JobLabel: "Writer"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSessions(t *testing.T) {
	dataDir := t.TempDir()
	s := newManifestSession(t, dataDir, session.StatusFailed)

	out, err := executeCommand(t, rootCmd, "sessions", "--data-dir", dataDir)
	if err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	for _, want := range []string{"Found 1 run(s)", s.ID, "Make a flyer", "1/2 accepted", "failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSessions_Empty(t *testing.T) {
	dataDir := t.TempDir()
	out, err := executeCommand(t, rootCmd, "sessions", "--data-dir", dataDir)
	if err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	if !strings.Contains(out, "No runs found") {
		t.Errorf("output = %q", out)
	}
}

func TestFollow_FinishedRun(t *testing.T) {
	dataDir := t.TempDir()
	s := newManifestSession(t, dataDir, session.StatusCompleted)

	out, err := executeCommand(t, rootCmd, "follow", "--data-dir", dataDir)
	if err != nil {
		t.Fatalf("follow error = %v", err)
	}
	if !strings.Contains(out, "following "+s.ID+" (completed)") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigPath(t *testing.T) {
	out, err := executeCommand(t, rootCmd, "config", "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if !strings.Contains(out, filepath.Join("crewpm", "config.yaml")) {
		t.Errorf("output = %q", out)
	}
}

func TestLogs_InvalidLevel(t *testing.T) {
	_, err := executeCommand(t, rootCmd, "logs", "--level", "loud")
	if err == nil || !strings.Contains(err.Error(), "invalid level") {
		t.Errorf("error = %v, want invalid level", err)
	}
}

func TestReadRequest(t *testing.T) {
	got, err := readRequest(strings.NewReader("  Plan a team offsite \n"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "Plan a team offsite" {
		t.Errorf("readRequest() = %q", got)
	}

	if _, err := readRequest(strings.NewReader(" \n\t")); err == nil {
		t.Error("readRequest() on blank input should fail")
	}
}

func TestOpenSession(t *testing.T) {
	dataDir := t.TempDir()

	fresh, err := openSession(dataDir, "")
	if err != nil {
		t.Fatalf("openSession(new) error = %v", err)
	}
	if _, err := os.Stat(fresh.Dir); err != nil {
		t.Errorf("session directory not created: %v", err)
	}

	s := newManifestSession(t, dataDir, session.StatusFailed)
	for _, ref := range []string{s.ID, s.ID[:15], s.Base, s.Path(session.ManifestSuffix)} {
		got, err := openSession(dataDir, ref)
		if err != nil {
			t.Errorf("openSession(%q) error = %v", ref, err)
			continue
		}
		if got.Base != s.Base {
			t.Errorf("openSession(%q).Base = %q, want %q", ref, got.Base, s.Base)
		}
	}

	_, err = openSession(dataDir, "19990101")
	var notFound *crewerrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("openSession(unknown) error = %v, want NotFoundError", err)
	}
}

func TestAwaitFinish(t *testing.T) {
	dataDir := t.TempDir()
	s := newManifestSession(t, dataDir, session.StatusRunning)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, ok := awaitFinish(ctx, s, make(chan session.Status)); ok {
		t.Error("awaitFinish() reported a running session as finished")
	}

	finished := make(chan session.Status, 1)
	finished <- session.StatusFailed
	if status, ok := awaitFinish(context.Background(), s, finished); !ok || status != session.StatusFailed {
		t.Errorf("awaitFinish() = %q, %v, want failed from the watcher", status, ok)
	}
}

func TestAwaitFinish_FinishedBeforeWatching(t *testing.T) {
	dataDir := t.TempDir()
	s := newManifestSession(t, dataDir, session.StatusRunning)

	// The run completes after the status check but before the watcher reports anything.
	st := session.NewStore(s)
	m, err := st.LoadManifest()
	if err != nil {
		t.Fatal(err)
	}
	m.Status = session.StatusCompleted
	if err := st.SaveManifest(m); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, ok := awaitFinish(ctx, s, make(chan session.Status))
	if !ok || status != session.StatusCompleted {
		t.Errorf("awaitFinish() = %q, %v, want completed without waiting", status, ok)
	}
	if ctx.Err() != nil {
		t.Error("awaitFinish() waited for the context instead of reading the manifest")
	}
}
