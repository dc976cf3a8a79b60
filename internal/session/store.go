package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Artifact suffixes appended to the session base.
const (
	ContextSuffix  = "_context.md"
	RolesSuffix    = "_roles.md"
	TeamSuffix     = "_team.md"
	ManifestSuffix = "_manifest.yaml"
	MetricsSuffix  = "_metrics.prom"
)

// StepSuffix returns the suffix of step file {index}_{slot}.
func StepSuffix(index, slot int) string {
	return fmt.Sprintf("_step%d_%d.md", index, slot)
}

// FinalSuffix returns the suffix of the i-th final deliverable.
func FinalSuffix(i int) string {
	return fmt.Sprintf("_final_%d.md", i)
}

// Store reads and writes the artifacts of one session.
// It is safe for concurrent use.
type Store struct {
	session *RunSession
	mu      sync.Mutex
}

// NewStore creates a Store for s.
func NewStore(s *RunSession) *Store {
	return &Store{session: s}
}

// Session returns the session the store writes to.
func (st *Store) Session() *RunSession {
	return st.session
}

// WriteContext stores the elaboration.
func (st *Store) WriteContext(content string) (string, error) {
	return st.write(ContextSuffix, content)
}

// ReadContext loads the elaboration.
func (st *Store) ReadContext() (string, error) {
	return st.read(ContextSuffix)
}

// WriteRoles stores the raw plan text.
func (st *Store) WriteRoles(content string) (string, error) {
	return st.write(RolesSuffix, content)
}

// ReadRoles loads the raw plan text.
func (st *Store) ReadRoles() (string, error) {
	return st.read(RolesSuffix)
}

// AppendTeam appends block to the team file.
func (st *Store) AppendTeam(block string) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	path := st.session.Path(TeamSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open team file: %w", err)
	}
	if _, err := f.WriteString(block); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to append team file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close team file: %w", err)
	}
	return path, nil
}

// WriteStep stores slot of the 1-based phase index. Slot 0 is the accepted
// artifact, slot 1 its review.
func (st *Store) WriteStep(index, slot int, content string) (string, error) {
	return st.write(StepSuffix(index, slot), content)
}

// ReadStep loads slot of the 1-based phase index.
func (st *Store) ReadStep(index, slot int) (string, error) {
	return st.read(StepSuffix(index, slot))
}

// WriteFinal stores the i-th final deliverable.
func (st *Store) WriteFinal(i int, content string) (string, error) {
	return st.write(FinalSuffix(i), content)
}

// MetricsPath returns where the run's metrics textfile belongs.
func (st *Store) MetricsPath() string {
	return st.session.Path(MetricsSuffix)
}

func (st *Store) write(suffix, content string) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	path := st.session.Path(suffix)
	if err := atomicWriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (st *Store) read(suffix string) (string, error) {
	data, err := os.ReadFile(st.session.Path(suffix))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(st.session.Path(suffix)))
		}
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return string(data), nil
}

// atomicWriteFile writes data to a temp file in the same directory and
// renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Create temp file in same directory to ensure atomic rename
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
