// Package session owns the on-disk layout of a crewpm run.
//
// A run writes every artifact under a session base path:
//
//	{dataDir}/{YYYYmmdd_HHMMSS}/session_{YYYYmmdd_HHMMSS}_{short id}
//
// to which fixed suffixes are appended: _context.md, _roles.md, _team.md,
// _step{N}_{i}.md, _final_{i}.md, _manifest.yaml and _metrics.prom. Writes
// are atomic (temp file + rename) except the team file, which is appended.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
)

// TimestampLayout formats the timestamp part of session IDs and directories.
const TimestampLayout = "20060102_150405"

// basePrefix precedes the session ID in the base file name.
const basePrefix = "session_"

// shortIDLen is the number of uuid characters in a session ID.
const shortIDLen = 8

// RunSession identifies one run and where its artifacts live.
type RunSession struct {
	// ID is "{timestamp}_{short random}".
	ID        string
	Timestamp time.Time
	// Dir is the timestamped directory holding the run's files.
	Dir string
	// Base is the path prefix every artifact name is built from.
	Base string
}

// New creates the session directory under dataDir for a run starting at now.
func New(dataDir string, now time.Time) (*RunSession, error) {
	ts := now.Format(TimestampLayout)
	id := ts + "_" + uuid.NewString()[:shortIDLen]
	dir := filepath.Join(dataDir, ts)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &RunSession{
		ID:        id,
		Timestamp: now,
		Dir:       dir,
		Base:      filepath.Join(dir, basePrefix+id),
	}, nil
}

// Open reconstructs the session that owns base, which must name an existing
// session directory. base may also be a path to the manifest file.
func Open(base string) (*RunSession, error) {
	base = strings.TrimSuffix(base, ManifestSuffix)
	name := filepath.Base(base)
	if !strings.HasPrefix(name, basePrefix) {
		return nil, crewerrors.NewValidationError("not a session base path").WithField("base").WithValue(base)
	}
	id := strings.TrimPrefix(name, basePrefix)
	if len(id) < len(TimestampLayout) {
		return nil, crewerrors.NewValidationError("session id is too short").WithField("base").WithValue(base)
	}
	ts, err := time.ParseInLocation(TimestampLayout, id[:len(TimestampLayout)], time.Local)
	if err != nil {
		return nil, crewerrors.NewValidationError("session id has no timestamp").
			WithField("base").WithValue(base).WithCause(err)
	}

	dir := filepath.Dir(base)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, crewerrors.NewNotFoundError("session directory", dir)
	}
	return &RunSession{ID: id, Timestamp: ts, Dir: dir, Base: base}, nil
}

// Path returns the artifact path for suffix, e.g. Path("_roles.md").
func (s *RunSession) Path(suffix string) string {
	return s.Base + suffix
}
