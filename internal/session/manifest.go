package session

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/crewpm/internal/orchestrator/retry"
)

// ErrNotFound is returned when a session artifact does not exist.
var ErrNotFound = errors.New("not found")

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// PhaseRecord is the manifest entry for one planned phase.
type PhaseRecord struct {
	Index        int    `yaml:"index"`
	Name         string `yaml:"name"`
	JobLabel     string `yaml:"job_label"`
	Accepted     bool   `yaml:"accepted"`
	Attempts     int    `yaml:"attempts,omitempty"`
	ArtifactPath string `yaml:"artifact_path,omitempty"`
}

// Manifest is the machine-readable summary of a run, rewritten after every
// milestone so that an interrupted run can be resumed.
type Manifest struct {
	SessionID string        `yaml:"session_id"`
	Request   string        `yaml:"request"`
	Provider  string        `yaml:"provider,omitempty"`
	Model     string        `yaml:"model,omitempty"`
	Status    Status        `yaml:"status"`
	CreatedAt time.Time     `yaml:"created_at"`
	UpdatedAt time.Time     `yaml:"updated_at"`
	Phases    []PhaseRecord `yaml:"phases,omitempty"`
	FinalPath string        `yaml:"final_path,omitempty"`
	Error     string        `yaml:"error,omitempty"`
	// Retries holds attempt bookkeeping keyed by phase name.
	Retries map[string]*retry.PhaseState `yaml:"retries,omitempty"`
}

// CompletedCount returns the number of leading accepted phases.
func (m *Manifest) CompletedCount() int {
	n := 0
	for _, p := range m.Phases {
		if !p.Accepted {
			break
		}
		n++
	}
	return n
}

// SaveManifest writes m as YAML, stamping UpdatedAt.
func (st *Store) SaveManifest(m *Manifest) error {
	m.UpdatedAt = time.Now()
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	_, err = st.write(ManifestSuffix, string(data))
	return err
}

// LoadManifest reads the session's manifest.
func (st *Store) LoadManifest() (*Manifest, error) {
	return ReadManifest(st.session.Path(ManifestSuffix))
}

// ReadManifest parses the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
