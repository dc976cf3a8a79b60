// Package testutil provides testing utilities for crewpm tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/crewpm/internal/ai"
)

// Call records one generator invocation.
type Call struct {
	Purpose ai.Purpose
	Prompt  string
}

// Reply is a queued generator response.
type Reply struct {
	Text string
	Err  error
}

// ScriptedGenerator is an ai.Generator that answers by call purpose.
// Queued replies for a purpose are consumed in order; once a queue is empty
// the purpose's fallback (if any) answers. It is safe for concurrent use.
type ScriptedGenerator struct {
	mu        sync.Mutex
	queues    map[ai.Purpose][]Reply
	fallbacks map[ai.Purpose]func(prompt string) (string, error)
	calls     []Call
}

// NewScriptedGenerator creates an empty ScriptedGenerator.
func NewScriptedGenerator() *ScriptedGenerator {
	return &ScriptedGenerator{
		queues:    make(map[ai.Purpose][]Reply),
		fallbacks: make(map[ai.Purpose]func(string) (string, error)),
	}
}

// On queues text replies for purpose.
func (g *ScriptedGenerator) On(purpose ai.Purpose, replies ...string) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range replies {
		g.queues[purpose] = append(g.queues[purpose], Reply{Text: r})
	}
	return g
}

// OnError queues a failing reply for purpose.
func (g *ScriptedGenerator) OnError(purpose ai.Purpose, err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queues[purpose] = append(g.queues[purpose], Reply{Err: err})
	return g
}

// Always answers every call for purpose with text once its queue is drained.
func (g *ScriptedGenerator) Always(purpose ai.Purpose, text string) *ScriptedGenerator {
	return g.Fallback(purpose, func(string) (string, error) { return text, nil })
}

// Fallback sets fn as the answer for purpose once its queue is drained.
func (g *ScriptedGenerator) Fallback(purpose ai.Purpose, fn func(prompt string) (string, error)) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fallbacks[purpose] = fn
	return g
}

// Complete implements ai.Generator.
func (g *ScriptedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	purpose := ai.PurposeFrom(ctx)

	g.mu.Lock()
	g.calls = append(g.calls, Call{Purpose: purpose, Prompt: prompt})
	if q := g.queues[purpose]; len(q) > 0 {
		r := q[0]
		g.queues[purpose] = q[1:]
		g.mu.Unlock()
		return r.Text, r.Err
	}
	fn := g.fallbacks[purpose]
	g.mu.Unlock()

	if fn == nil {
		return "", fmt.Errorf("testutil: no scripted reply for purpose %q", purpose)
	}
	return fn(prompt)
}

// Calls returns a copy of every recorded call in order.
func (g *ScriptedGenerator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// Prompts returns the prompts recorded for purpose in order.
func (g *ScriptedGenerator) Prompts(purpose ai.Purpose) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, c := range g.calls {
		if c.Purpose == purpose {
			out = append(out, c.Prompt)
		}
	}
	return out
}

// Count returns how many calls were made for purpose.
func (g *ScriptedGenerator) Count(purpose ai.Purpose) int {
	return len(g.Prompts(purpose))
}

// WriteFiles creates files under dir. The files map holds relative paths to contents.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for path, content := range files {
		fullPath := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write file %s: %v", path, err)
		}
	}
}

// ReadFile returns the contents of dir/name, failing the test if it is missing.
func ReadFile(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

// ListFiles returns the sorted names of the regular files in dir.
func ListFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// FilesWithPrefix returns the sorted names in dir that start with prefix.
func FilesWithPrefix(t *testing.T, dir, prefix string) []string {
	t.Helper()

	var out []string
	for _, name := range ListFiles(t, dir) {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}
