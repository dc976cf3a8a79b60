package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogEntry is one parsed line of debug.log.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
	SessionID string
	Phase     string
	Attempt   int
	Purpose   string
	Attrs     map[string]any
}

// LogFilter selects entries from a session log. Zero-valued fields match everything.
type LogFilter struct {
	// Level keeps entries at or above this level.
	Level string
	// Phase keeps entries tagged with this phase name.
	Phase string
	// Purpose keeps generator-call entries with this purpose.
	Purpose string
	// MessageContains keeps entries whose message contains this substring.
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var standardFields = map[string]bool{
	"time": true, "level": true, "msg": true,
	"session_id": true, "phase": true, "attempt": true, "purpose": true,
}

// ReadLogs parses {sessionDir}/debug.log, applies filter and returns the
// entries in timestamp order. Malformed lines are skipped.
func ReadLogs(sessionDir string, filter LogFilter) ([]LogEntry, error) {
	f, err := os.Open(filepath.Join(sessionDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file found in session directory: %w", err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []LogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024) // artifacts can be logged at debug level
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		if filter.matches(entry) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := LogEntry{Attrs: make(map[string]any)}
	if s, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			entry.Timestamp = t
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.SessionID, _ = raw["session_id"].(string)
	entry.Phase, _ = raw["phase"].(string)
	entry.Purpose, _ = raw["purpose"].(string)
	if n, ok := raw["attempt"].(float64); ok {
		entry.Attempt = int(n)
	}
	for k, v := range raw {
		if !standardFields[k] {
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

func (f LogFilter) matches(e LogEntry) bool {
	if f.Level != "" {
		if levelOrder[strings.ToUpper(e.Level)] < levelOrder[ParseLevel(f.Level)] {
			return false
		}
	}
	if f.Phase != "" && e.Phase != f.Phase {
		return false
	}
	if f.Purpose != "" && e.Purpose != f.Purpose {
		return false
	}
	if f.MessageContains != "" && !strings.Contains(e.Message, f.MessageContains) {
		return false
	}
	return true
}

// FormatEntry renders an entry as a single human-readable line.
func FormatEntry(e LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", e.Timestamp.Format("15:04:05.000"), e.Level, e.Message)
	if e.Phase != "" {
		fmt.Fprintf(&b, " phase=%q", e.Phase)
	}
	if e.Attempt > 0 {
		fmt.Fprintf(&b, " attempt=%d", e.Attempt)
	}
	if e.Purpose != "" {
		fmt.Fprintf(&b, " purpose=%s", e.Purpose)
	}
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Attrs[k])
	}
	return b.String()
}
