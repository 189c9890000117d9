package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Graph is the node map of one flow, keyed by node id.
// Every graph has exactly one root under RootID.
type Graph map[string]Node

// NodeByID returns the node stored under id.
func (g Graph) NodeByID(id string) (Node, bool) {
	n, ok := g[id]
	if ok && n.ID == "" {
		n.ID = id
	}
	return n, ok
}

// Root returns the root node.
func (g Graph) Root() (Node, bool) {
	return g.NodeByID(RootID)
}

// EdgesOf returns a copy of the ordered child ids of id.
func (g Graph) EdgesOf(id string) []string {
	n, ok := g[id]
	if !ok || len(n.Edges) == 0 {
		return nil
	}
	return append([]string(nil), n.Edges...)
}

// IDs returns every node id in sorted order.
func (g Graph) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the graph with node ids normalised.
func (g Graph) Clone() Graph {
	if g == nil {
		return nil
	}
	out := make(Graph, len(g))
	for id, n := range g {
		c := n.Clone()
		c.ID = id
		out[id] = c
	}
	return out
}

// Validate checks structural integrity: the root exists and every edge
// target exists in the graph. Parents are checked in sorted order so the
// reported reference is deterministic. ExternalPortal nodes own no edges;
// their flowId resolves against another graph and is not checked here.
func (g Graph) Validate() error {
	if _, ok := g[RootID]; !ok {
		return ErrMissingRoot
	}
	for _, id := range g.IDs() {
		for _, target := range g[id].Edges {
			if _, ok := g[target]; !ok {
				return &BrokenReferenceError{Parent: id, Target: target}
			}
		}
	}
	return nil
}

// ValidateTypes rejects node types outside the closed set.
func (g Graph) ValidateTypes() error {
	for _, id := range g.IDs() {
		n := g[id]
		if id == RootID {
			continue
		}
		if !n.Type.Known() {
			return fmt.Errorf("node %s: %w: %d", id, ErrUnknownNodeType, int(n.Type))
		}
	}
	return nil
}

// Walk visits nodes depth-first in edge order starting at start (inclusive).
// Nodes shared by several parents are visited once. Missing targets are
// skipped. Returning false from fn stops descent below that node.
func (g Graph) Walk(start string, fn func(n Node, depth int) bool) {
	visited := make(map[string]bool)
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		if visited[id] {
			return
		}
		visited[id] = true
		n, ok := g.NodeByID(id)
		if !ok {
			return
		}
		if !fn(n, depth) {
			return
		}
		for _, child := range n.Edges {
			visit(child, depth+1)
		}
	}
	visit(start, 0)
}

// Descendants returns the ids reachable from id (exclusive) in traversal order.
func (g Graph) Descendants(id string) []string {
	var out []string
	g.Walk(id, func(n Node, depth int) bool {
		if depth > 0 {
			out = append(out, n.ID)
		}
		return true
	})
	return out
}

// ParentsOf returns the ids of every node listing id as an edge, sorted.
func (g Graph) ParentsOf(id string) []string {
	var parents []string
	for _, pid := range g.IDs() {
		for _, child := range g[pid].Edges {
			if child == id {
				parents = append(parents, pid)
				break
			}
		}
	}
	return parents
}

// NodesOfType returns nodes of the given type sorted by id.
func (g Graph) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, id := range g.IDs() {
		if n := g[id]; n.Type == t && id != RootID {
			n.ID = id
			out = append(out, n)
		}
	}
	return out
}

// HasType reports whether any node has the given type.
func (g Graph) HasType(t NodeType) bool {
	for id, n := range g {
		if n.Type == t && id != RootID {
			return true
		}
	}
	return false
}

// CountByType returns the number of nodes per type.
func (g Graph) CountByType() map[NodeType]int {
	counts := make(map[NodeType]int)
	for id, n := range g {
		if id == RootID {
			continue
		}
		counts[n.Type]++
	}
	return counts
}

// MarshalJSON encodes the graph with ids as keys only.
func (g Graph) MarshalJSON() ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	raw := make(map[string]Node, len(g))
	for id, n := range g {
		n.ID = ""
		raw[id] = n
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes a graph and fills node ids from their keys.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw map[string]Node
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*g = nil
		return nil
	}
	out := make(Graph, len(raw))
	for id, n := range raw {
		n.ID = id
		out[id] = n
	}
	*g = out
	return nil
}
