package session

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
	"github.com/Iron-Ham/crewpm/internal/orchestrator/retry"
)

var idPattern = regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}$`)

func newTestSession(t *testing.T) *RunSession {
	t.Helper()
	s, err := New(t.TempDir(), time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	dataDir := t.TempDir()
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)

	s, err := New(dataDir, now)
	if err != nil {
		t.Fatal(err)
	}
	if !idPattern.MatchString(s.ID) {
		t.Errorf("ID = %q, want timestamp_shortid", s.ID)
	}
	if !strings.HasPrefix(s.ID, "20250314_092653_") {
		t.Errorf("ID = %q, want timestamp prefix", s.ID)
	}
	if s.Dir != filepath.Join(dataDir, "20250314_092653") {
		t.Errorf("Dir = %q", s.Dir)
	}
	if s.Base != filepath.Join(s.Dir, "session_"+s.ID) {
		t.Errorf("Base = %q", s.Base)
	}
	if info, err := os.Stat(s.Dir); err != nil || !info.IsDir() {
		t.Error("session directory was not created")
	}

	other, _ := New(dataDir, now)
	if other.ID == s.ID {
		t.Error("two sessions in the same second must have distinct IDs")
	}
}

func TestOpen(t *testing.T) {
	s := newTestSession(t)

	for _, in := range []string{s.Base, s.Base + ManifestSuffix} {
		got, err := Open(in)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", in, err)
		}
		if got.ID != s.ID || got.Base != s.Base || got.Dir != s.Dir || !got.Timestamp.Equal(s.Timestamp) {
			t.Errorf("Open(%q) = %+v, want %+v", in, got, s)
		}
	}

	tests := []struct {
		name string
		base string
		want error
	}{
		{"no prefix", filepath.Join(s.Dir, "other_20250314_092653_abcd1234"), crewerrors.ErrInvalidInput},
		{"short id", filepath.Join(s.Dir, "session_2025"), crewerrors.ErrInvalidInput},
		{"bad timestamp", filepath.Join(s.Dir, "session_2025031X_092653_abcd1234"), crewerrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(tt.base); !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := Open(filepath.Join(t.TempDir(), "missing", "session_20250314_092653_abcd1234"))
	var nf *crewerrors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Open(missing dir) error = %v, want NotFoundError", err)
	}
}

func TestStore_Artifacts(t *testing.T) {
	s := newTestSession(t)
	st := NewStore(s)

	if _, err := st.WriteContext("ELAB"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.WriteRoles("A / a / W / w"); err != nil {
		t.Fatal(err)
	}
	path, err := st.WriteStep(2, 1, "review")
	if err != nil {
		t.Fatal(err)
	}
	if path != s.Base+"_step2_1.md" {
		t.Errorf("WriteStep() path = %q", path)
	}
	if path, _ := st.WriteFinal(0, "final"); path != s.Base+"_final_0.md" {
		t.Errorf("WriteFinal() path = %q", path)
	}

	if got, _ := st.ReadContext(); got != "ELAB" {
		t.Errorf("ReadContext() = %q", got)
	}
	if got, _ := st.ReadRoles(); got != "A / a / W / w" {
		t.Errorf("ReadRoles() = %q", got)
	}
	if got, _ := st.ReadStep(2, 1); got != "review" {
		t.Errorf("ReadStep() = %q", got)
	}
	if _, err := st.ReadStep(9, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadStep(missing) error = %v, want ErrNotFound", err)
	}
	if st.MetricsPath() != s.Base+"_metrics.prom" {
		t.Errorf("MetricsPath() = %q", st.MetricsPath())
	}

	entries, _ := os.ReadDir(s.Dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStore_AppendTeam(t *testing.T) {
	st := NewStore(newTestSession(t))
	for _, block := range []string{"PM team\n\n", "Writer team\n\n"} {
		if _, err := st.AppendTeam(block); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(st.Session().Path(TeamSuffix))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "PM team\n\nWriter team\n\n" {
		t.Errorf("team file = %q", data)
	}
}

func TestManifest(t *testing.T) {
	s := newTestSession(t)
	st := NewStore(s)
	m := &Manifest{
		SessionID: s.ID,
		Request:   "flyer",
		Provider:  "openai",
		Status:    StatusRunning,
		CreatedAt: s.Timestamp,
		Phases: []PhaseRecord{
			{Index: 1, Name: "Copy", JobLabel: "Writer", Accepted: true, Attempts: 2, ArtifactPath: "x"},
			{Index: 2, Name: "Layout", JobLabel: "Designer"},
			{Index: 3, Name: "Print", JobLabel: "Designer", Accepted: true},
		},
		Retries: map[string]*retry.PhaseState{
			"Copy": {Phase: "Copy", Attempts: 2, MaxAttempts: 5, Accepted: true, Rationales: []string{"thin", "ok"}},
		},
	}
	if err := st.SaveManifest(m); err != nil {
		t.Fatal(err)
	}
	if m.UpdatedAt.IsZero() {
		t.Error("SaveManifest() should stamp UpdatedAt")
	}

	got, err := st.LoadManifest()
	if err != nil {
		t.Fatal(err)
	}
	opts := cmpopts.EquateApproxTime(time.Second)
	if diff := cmp.Diff(m, got, opts); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
	if got.CompletedCount() != 1 {
		t.Errorf("CompletedCount() = %d, want 1 (only leading accepted phases)", got.CompletedCount())
	}

	if _, err := ReadManifest(filepath.Join(s.Dir, "missing.yaml")); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadManifest(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLock(t *testing.T) {
	s := newTestSession(t)

	lock, err := AcquireLock(s, nil)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	if _, locked := IsLocked(s.Base); !locked {
		t.Error("IsLocked() = false after acquire")
	}
	if _, err := AcquireLock(s, nil); !errors.Is(err, ErrSessionLocked) {
		t.Errorf("second AcquireLock() error = %v, want ErrSessionLocked", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
	if _, locked := IsLocked(s.Base); locked {
		t.Error("IsLocked() = true after release")
	}
}

func TestLock_StaleIsReplaced(t *testing.T) {
	s := newTestSession(t)
	stale := `{"session_id":"x","pid":999999999,"hostname":"h","started_at":"2025-01-01T00:00:00Z"}`
	if err := os.WriteFile(s.Path(LockSuffix), []byte(stale), 0644); err != nil {
		t.Fatal(err)
	}

	lock, err := AcquireLock(s, nil)
	if err != nil {
		t.Fatalf("AcquireLock() over stale lock error = %v", err)
	}
	defer func() { _ = lock.Release() }()
	if lock.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", lock.PID, os.Getpid())
	}
}

func TestDiscoverAndFind(t *testing.T) {
	dataDir := t.TempDir()
	older, _ := New(dataDir, time.Date(2025, 1, 1, 10, 0, 0, 0, time.Local))
	newer, _ := New(dataDir, time.Date(2025, 2, 1, 10, 0, 0, 0, time.Local))
	for _, s := range []*RunSession{older, newer} {
		err := NewStore(s).SaveManifest(&Manifest{
			SessionID: s.ID,
			Request:   "req " + s.ID,
			Status:    StatusCompleted,
			CreatedAt: s.Timestamp,
			Phases:    []PhaseRecord{{Index: 1, Name: "A", Accepted: true}, {Index: 2, Name: "B"}},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	// A directory without a manifest is ignored.
	if err := os.MkdirAll(filepath.Join(dataDir, "20250301_000000"), 0755); err != nil {
		t.Fatal(err)
	}

	infos, err := Discover(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(Discover()) = %d, want 2", len(infos))
	}
	if infos[0].ID != newer.ID {
		t.Errorf("Discover()[0] = %s, want newest first", infos[0].ID)
	}
	if infos[0].Base != newer.Base || infos[0].Completed != 1 || infos[0].Total != 2 {
		t.Errorf("info = %+v", infos[0])
	}
	if !Exists(older.Base) {
		t.Error("Exists(older) = false")
	}

	got, err := Find(dataDir, "202501")
	if err != nil || got.ID != older.ID {
		t.Errorf("Find(prefix) = %v, %v", got, err)
	}
	if _, err := Find(dataDir, "2025"); !errors.Is(err, crewerrors.ErrInvalidInput) {
		t.Errorf("Find(ambiguous) error = %v, want ErrInvalidInput", err)
	}
	var nf *crewerrors.NotFoundError
	if _, err := Find(dataDir, "1999"); !errors.As(err, &nf) {
		t.Errorf("Find(missing) error = %v, want NotFoundError", err)
	}
}
