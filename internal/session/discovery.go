package session

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
)

// Info contains summary information about a run found on disk.
type Info struct {
	ID        string
	Base      string
	Dir       string
	Request   string
	Status    Status
	Created   time.Time
	Completed int
	Total     int
	FinalPath string
	IsLocked  bool
}

// Discover lists the runs under dataDir, newest first. Directories without
// a readable manifest are skipped.
func Discover(dataDir string) ([]*Info, error) {
	pattern := filepath.Join(dataDir, "*", basePrefix+"*"+ManifestSuffix)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var infos []*Info
	for _, path := range paths {
		info, err := infoFromManifest(path)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Created.After(infos[j].Created)
	})
	return infos, nil
}

// Find returns the run under dataDir whose ID equals or starts with id.
func Find(dataDir, id string) (*Info, error) {
	infos, err := Discover(dataDir)
	if err != nil {
		return nil, err
	}
	var match *Info
	for _, info := range infos {
		if info.ID == id {
			return info, nil
		}
		if strings.HasPrefix(info.ID, id) {
			if match != nil {
				return nil, crewerrors.NewValidationError("session id prefix is ambiguous").WithField("id").WithValue(id)
			}
			match = info
		}
	}
	if match == nil {
		return nil, crewerrors.NewNotFoundError("session", id)
	}
	return match, nil
}

func infoFromManifest(path string) (*Info, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(path, ManifestSuffix)
	_, locked := IsLocked(base)
	return &Info{
		ID:        m.SessionID,
		Base:      base,
		Dir:       filepath.Dir(path),
		Request:   m.Request,
		Status:    m.Status,
		Created:   m.CreatedAt,
		Completed: m.CompletedCount(),
		Total:     len(m.Phases),
		FinalPath: m.FinalPath,
		IsLocked:  locked,
	}, nil
}

// Exists reports whether base has a manifest.
func Exists(base string) bool {
	_, err := os.Stat(base + ManifestSuffix)
	return err == nil
}
