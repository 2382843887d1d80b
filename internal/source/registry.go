// Package source holds the catalog of listing sites and the parser bound to each.
package source

import (
	"errors"
	"fmt"

	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/parser"
)

// ErrDuplicateSource is returned when a source id is registered twice.
var ErrDuplicateSource = errors.New("duplicate source")

// Registry is an ordered, read-mostly catalog of sources. It is not safe for
// concurrent registration; build it once at startup.
type Registry struct {
	order    []string
	sources  map[string]contest.Source
	adapters map[string]parser.Adapter
	fallback parser.Adapter
}

// New creates an empty registry that dispatches unknown ids to fallback.
func New(fallback parser.Adapter) *Registry {
	if fallback == nil {
		fallback = parser.NewGeneric(nil)
	}
	return &Registry{
		sources:  make(map[string]contest.Source),
		adapters: make(map[string]parser.Adapter),
		fallback: fallback,
	}
}

// Register adds src. A nil adapter means the source uses the fallback.
func (r *Registry) Register(src contest.Source, adapter parser.Adapter) error {
	if src.ID == "" {
		return errors.New("source id is required")
	}
	if _, ok := r.sources[src.ID]; ok {
		return fmt.Errorf("register %q: %w", src.ID, ErrDuplicateSource)
	}
	if src.Country != contest.CountryFR && src.Country != contest.CountryINT {
		return fmt.Errorf("register %q: unknown country %q", src.ID, src.Country)
	}
	src.URLs = append([]string(nil), src.URLs...)
	r.order = append(r.order, src.ID)
	r.sources[src.ID] = src
	if adapter != nil {
		r.adapters[src.ID] = adapter
	}
	return nil
}

// Get returns the source registered under id.
func (r *Registry) Get(id string) (contest.Source, bool) {
	src, ok := r.sources[id]
	return src, ok
}

// All returns every source in registration order.
func (r *Registry) All() []contest.Source {
	out := make([]contest.Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sources[id])
	}
	return out
}

// IDs returns the registered ids in order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len reports how many sources are registered.
func (r *Registry) Len() int {
	return len(r.order)
}

// Adapter returns the dedicated adapter for id, or the fallback.
func (r *Registry) Adapter(id string) parser.Adapter {
	if a, ok := r.adapters[id]; ok {
		return a
	}
	return r.fallback
}
