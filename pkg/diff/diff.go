// Package diff computes the structural difference between two versions of
// a flow graph.
package diff

import (
	"sort"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// AlteredNode is a node that is new, removed or changed between two graphs.
// New and changed nodes carry their current type and data; removed nodes
// carry their previous ones.
type AlteredNode struct {
	ID      string          `json:"id"`
	Type    domain.NodeType `json:"type,omitempty"`
	Data    map[string]any  `json:"data,omitempty"`
	Added   bool            `json:"added,omitempty"`
	Removed bool            `json:"removed,omitempty"`
}

// Changes maps altered node ids to their record.
// A nil Changes means the graphs are equivalent.
type Changes map[string]AlteredNode

// Compute compares previous and current.
//
// It returns nil when both graphs have the same key set and every node has
// an equivalent type, data and edges. Object key order and number encoding
// are irrelevant, edge order is significant.
func Compute(previous, current domain.Graph) Changes {
	var changes Changes
	record := func(n AlteredNode) {
		if changes == nil {
			changes = make(Changes)
		}
		changes[n.ID] = n
	}

	for id, cur := range current {
		prev, ok := previous[id]
		if ok && prev.Equal(cur) {
			continue
		}
		record(AlteredNode{ID: id, Type: cur.Type, Data: domain.CloneMap(cur.Data), Added: !ok})
	}

	for id, prev := range previous {
		if _, ok := current[id]; ok {
			continue
		}
		record(AlteredNode{ID: id, Type: prev.Type, Data: domain.CloneMap(prev.Data), Removed: true})
	}

	return changes
}

// Has reports whether id is altered.
func (c Changes) Has(id string) bool {
	_, ok := c[id]
	return ok
}

// IDs returns the altered ids in sorted order.
func (c Changes) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary splits a set of changes into sorted added, removed and modified ids.
type Summary struct {
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Modified []string `json:"modified,omitempty"`
}

// Empty reports whether the summary lists no ids.
func (s Summary) Empty() bool {
	return len(s.Added) == 0 && len(s.Removed) == 0 && len(s.Modified) == 0
}

// Summary classifies the changes.
func (c Changes) Summary() Summary {
	var s Summary
	for _, id := range c.IDs() {
		switch {
		case c[id].Removed:
			s.Removed = append(s.Removed, id)
		case c[id].Added:
			s.Added = append(s.Added, id)
		default:
			s.Modified = append(s.Modified, id)
		}
	}
	return s
}
