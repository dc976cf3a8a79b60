package session

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval collects the burst of events a single atomic write makes.
const debounceInterval = 50 * time.Millisecond

// Change is an artifact written to a watched session.
type Change struct {
	Path string
	// Suffix is the part of the file name after the session base, e.g. "_step2_0.md".
	Suffix string
	Time   time.Time
}

// IsManifest reports whether the change rewrote the manifest.
func (c Change) IsManifest() bool {
	return c.Suffix == ManifestSuffix
}

// Watcher reports artifacts written to a session directory by another process.
type Watcher struct {
	watcher *fsnotify.Watcher
	base    string

	onChange func(Change)
	onError  func(error)

	mu       sync.Mutex
	started  bool
	seen     map[string]time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher watches the directory of s. Call Start to begin delivering changes.
func NewWatcher(s *RunSession) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(s.Dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{
		watcher: w,
		base:    filepath.Base(s.Base),
		seen:    make(map[string]time.Time),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// OnChange sets the callback for artifact changes. It must be set before Start.
func (w *Watcher) OnChange(cb func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = cb
}

// OnError sets the callback for watcher errors. It must be set before Start.
func (w *Watcher) OnError(cb func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = cb
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.watchLoop()
}

// Stop ends watching and waits for the loop to exit. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	debounce := time.NewTimer(0)
	<-debounce.C

	pending := make(map[string]struct{})
	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if _, ok := w.suffix(ev.Name); !ok {
				continue
			}
			pending[ev.Name] = struct{}{}
			debounce.Reset(debounceInterval)

		case <-debounce.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]struct{})
			sort.Strings(paths)
			for _, p := range paths {
				w.emit(p)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			cb := w.onError
			w.mu.Unlock()
			if cb != nil {
				cb(err)
			}
		}
	}
}

// suffix returns the artifact suffix of path. Temp files and files of other
// sessions have none.
func (w *Watcher) suffix(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, w.base) {
		return "", false
	}
	suffix := strings.TrimPrefix(name, w.base)
	if suffix == "" || suffix == LockSuffix {
		return "", false
	}
	return suffix, true
}

func (w *Watcher) emit(path string) {
	suffix, _ := w.suffix(path)
	now := time.Now()

	w.mu.Lock()
	w.seen[suffix] = now
	cb := w.onChange
	w.mu.Unlock()

	if cb != nil {
		cb(Change{Path: path, Suffix: suffix, Time: now})
	}
}

// Seen returns the suffixes reported so far, sorted.
func (w *Watcher) Seen() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.seen))
	for s := range w.seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
