// Package collect turns external sources into evidence inputs.
//
// Collectors are looked up through an explicit registry value owned by the
// caller; nothing here reaches into global state. Collectors produce inputs
// and the ledger turns them into records; the ledger, not the collector,
// owns identifier assignment.
package collect

import (
	"context"
	"fmt"
	"sort"
)

// Input is evidence content before it is recorded: what was captured, where
// it came from, and any collector-specific metadata.
type Input struct {
	Content  string
	Source   string
	Metadata map[string]string
}

// Descriptor tells a collector what to extract.
type Descriptor struct {
	Collector string            // registry name, e.g. "manual", "file", "http"
	Source    string            // source descriptor: URL, path, or label
	Content   string            // inline content for the manual collector
	Metadata  map[string]string // caller-supplied metadata merged into inputs
}

// Collector extracts evidence inputs from one kind of source.
type Collector interface {
	Name() string
	Version() string
	Extract(ctx context.Context, d Descriptor) ([]Input, error)
}

// Registry maps collector names to implementations. It is a plain value the
// caller constructs and passes around.
type Registry struct {
	collectors map[string]Collector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: make(map[string]Collector)}
}

// Register adds a collector; a duplicate name is an error.
func (r *Registry) Register(c Collector) error {
	if _, ok := r.collectors[c.Name()]; ok {
		return fmt.Errorf("collector %q is already registered", c.Name())
	}
	r.collectors[c.Name()] = c
	return nil
}

// Get looks up a collector by name.
func (r *Registry) Get(name string) (Collector, error) {
	c, ok := r.collectors[name]
	if !ok {
		return nil, fmt.Errorf("unknown collector: %s (registered: %v)", name, r.Names())
	}
	return c, nil
}

// Names lists registered collector names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// mergeMetadata overlays descriptor metadata on collector metadata; the
// caller's keys win.
func mergeMetadata(collector, caller map[string]string) map[string]string {
	if len(collector) == 0 && len(caller) == 0 {
		return nil
	}
	out := make(map[string]string, len(collector)+len(caller))
	for k, v := range collector {
		out[k] = v
	}
	for k, v := range caller {
		out[k] = v
	}
	return out
}
