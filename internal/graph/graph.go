// Package graph accumulates the site graph: one edge per outbound link
// seen on a processed page, in discovery order. Parallel edges are kept
// because link multiplicity is meaningful downstream.
package graph

import (
	"sync"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Builder collects edges. It is safe for concurrent use.
type Builder struct {
	mu    sync.Mutex
	edges []model.Edge
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{edges: make([]model.Edge, 0)}
}

// AddPage appends one edge per outbound link of the page at from,
// including links to targets that are never fetched.
func (b *Builder) AddPage(from string, links []model.Link) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range links {
		b.edges = append(b.edges, model.Edge{From: from, To: l.URL, Type: l.Type})
	}
}

// Edges returns a copy of all edges in discovery order.
func (b *Builder) Edges() []model.Edge {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append(make([]model.Edge, 0, len(b.edges)), b.edges...)
}

// Len returns the number of edges.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.edges)
}

// Restore replaces all edges, e.g. from a checkpoint.
func (b *Builder) Restore(edges []model.Edge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edges = append(make([]model.Edge, 0, len(edges)), edges...)
}

// Stats summarizes the graph.
type Stats struct {
	Edges     int
	Sources   int
	Targets   int
	Internal  int
	External  int
	Documents int
}

// Stats computes counts over the current edges.
func (b *Builder) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	sources := make(map[string]struct{})
	targets := make(map[string]struct{})
	s := Stats{Edges: len(b.edges)}
	for _, e := range b.edges {
		sources[e.From] = struct{}{}
		targets[e.To] = struct{}{}
		switch e.Type {
		case model.LinkInternal:
			s.Internal++
		case model.LinkExternal:
			s.External++
		case model.LinkDocument:
			s.Documents++
		}
	}
	s.Sources = len(sources)
	s.Targets = len(targets)
	return s
}
