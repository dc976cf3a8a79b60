package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/Iron-Ham/crewpm/internal/logging"
)

// LockSuffix is appended to the session base to form its lock file.
const LockSuffix = ".lock"

// ErrSessionLocked is returned when another live process holds the session lock.
var ErrSessionLocked = errors.New("session is locked by another process")

// Lock is an acquired session lock. It keeps a resumed run and the run it
// resumes from writing the same artifacts at once.
type Lock struct {
	SessionID string    `json:"session_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	// Internal fields (not serialized)
	lockFile string
	logger   *logging.Logger
}

// AcquireLock takes the lock for s. A lock left by a dead process is removed
// first. The logger may be nil.
func AcquireLock(s *RunSession, logger *logging.Logger) (*Lock, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	lockPath := s.Path(LockSuffix)

	if existing, err := ReadLock(lockPath); err == nil {
		if isProcessAlive(existing.PID) {
			logger.Error("failed to acquire lock", "session_id", s.ID, "pid", existing.PID)
			return nil, fmt.Errorf("%w: PID %d on %s", ErrSessionLocked, existing.PID, existing.Hostname)
		}
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		logger.Warn("stale lock cleaned", "session_id", s.ID, "old_pid", existing.PID)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	lock := &Lock{
		SessionID: s.ID,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		lockFile:  lockPath,
		logger:    logger,
	}
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL fails if another process created the file since the check above
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrSessionLocked
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	logger.Debug("session lock acquired", "session_id", s.ID, "pid", lock.PID)
	return lock, nil
}

// Release removes the lock file if this process still owns it.
// Safe to call multiple times.
func (l *Lock) Release() error {
	if l == nil || l.lockFile == "" {
		return nil
	}
	existing, err := ReadLock(l.lockFile)
	if err != nil || existing.PID != l.PID {
		return nil
	}
	if err := os.Remove(l.lockFile); err != nil {
		return err
	}
	l.logger.Debug("session lock released", "session_id", l.SessionID)
	return nil
}

// ReadLock reads a lock file.
func ReadLock(lockPath string) (*Lock, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.lockFile = lockPath
	lock.logger = logging.NopLogger()
	return &lock, nil
}

// IsLocked reports whether a live process holds the lock for base.
func IsLocked(base string) (*Lock, bool) {
	lock, err := ReadLock(base + LockSuffix)
	if err != nil {
		return nil, false
	}
	return lock, isProcessAlive(lock.PID)
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	// On Unix, sending signal 0 checks if process exists without affecting it
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
