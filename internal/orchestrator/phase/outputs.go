package phase

import (
	"fmt"
	"sync"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
)

// Output is an accepted phase artifact.
type Output struct {
	Name    string
	Content string
}

// Outputs holds accepted artifacts keyed by phase name in acceptance order.
// Each key is written at most once. It is safe for concurrent use.
type Outputs struct {
	mu      sync.RWMutex
	order   []string
	content map[string]string
}

// NewOutputs creates an empty Outputs.
func NewOutputs() *Outputs {
	return &Outputs{content: make(map[string]string)}
}

// Put records the accepted artifact for name. A second write for the same
// name returns ErrOutputExists.
func (o *Outputs) Put(name, content string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.content[name]; exists {
		return fmt.Errorf("%w: %s", crewerrors.ErrOutputExists, name)
	}
	o.content[name] = content
	o.order = append(o.order, name)
	return nil
}

// Get returns the artifact accepted for name.
func (o *Outputs) Get(name string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.content[name]
	return c, ok
}

// Has reports whether name has an accepted artifact.
func (o *Outputs) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

// Len returns the number of accepted artifacts.
func (o *Outputs) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.order)
}

// Names returns phase names in acceptance order.
func (o *Outputs) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.order...)
}

// All returns every accepted artifact in acceptance order.
func (o *Outputs) All() []Output {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Output, len(o.order))
	for i, name := range o.order {
		out[i] = Output{Name: name, Content: o.content[name]}
	}
	return out
}
