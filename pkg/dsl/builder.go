package dsl

import (
	"fmt"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	nodes map[string]*NodeBuilder
	order []string
}

// New creates a new graph builder with an empty root.
func New() *Builder {
	b := &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
	b.Add(domain.RootID)
	return b
}

// Root returns the builder of the root node.
func (b *Builder) Root() *NodeBuilder {
	return b.nodes[domain.RootID]
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Graph returns the node map without checking it.
func (b *Builder) Graph() domain.Graph {
	g := make(domain.Graph, len(b.nodes))
	for _, id := range b.order {
		g[id] = b.nodes[id].Build()
	}
	return g
}

// Build compiles the graph and checks its structural integrity.
func (b *Builder) Build() (domain.Graph, error) {
	g := b.Graph()
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	if err := g.ValidateTypes(); err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}

// MustBuild is like Build but panics on error. Intended for fixtures.
func (b *Builder) MustBuild() domain.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
