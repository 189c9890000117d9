// Package copier duplicates a flow, or the sub-graph owned by an internal
// portal, under freshly rewritten node ids.
package copier

import (
	"fmt"
	"unicode/utf8"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// flowIDKey holds references to other flows; it is never rewritten.
const flowIDKey = "flowId"

// RewriteID replaces the trailing characters of id with suffix. Ids shorter
// than the suffix get it appended instead. Lengths count runes, so ids
// with multi-byte characters stay valid UTF-8.
func RewriteID(id, suffix string) string {
	idRunes := []rune(id)
	n := utf8.RuneCountInString(suffix)
	if len(idRunes) < n {
		return id + suffix
	}
	return string(idRunes[:len(idRunes)-n]) + suffix
}

// CopyFlow returns a copy of every node of graph under rewritten ids.
// The root keeps its key. Edges and data values that name a copied node are
// rewritten; flowId values are left untouched.
func CopyFlow(graph domain.Graph, suffix string) (domain.Graph, error) {
	if suffix == "" {
		return nil, domain.ErrEmptySuffix
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	owned := make([]string, 0, len(graph))
	for _, id := range graph.IDs() {
		if id != domain.RootID {
			owned = append(owned, id)
		}
	}
	m, err := newMapping(owned, suffix, nil)
	if err != nil {
		return nil, err
	}

	out := make(domain.Graph, len(graph))
	for id, n := range graph {
		newID := domain.RootID
		if id != domain.RootID {
			newID = m[id]
		}
		out[newID] = m.node(newID, n)
	}
	return out, nil
}

// CopyPortalAsFlow returns the sub-graph owned by the InternalPortal
// portalID as a self-contained flow. The portal's edges become the edges of
// the new root; the portal node itself is discarded. Ids of the copy never
// clash with ids of graph.
func CopyPortalAsFlow(graph domain.Graph, portalID, suffix string) (domain.Graph, error) {
	if suffix == "" {
		return nil, domain.ErrEmptySuffix
	}
	portal, ok := graph.NodeByID(portalID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q not found", domain.ErrInvalidPortalNode, portalID)
	}
	if portal.Type != domain.TypeInternalPortal {
		return nil, fmt.Errorf("%w: node %q is a %s", domain.ErrInvalidPortalNode, portalID, portal.Type)
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	owned := graph.Descendants(portalID)
	m, err := newMapping(owned, suffix, graph)
	if err != nil {
		return nil, err
	}

	out := make(domain.Graph, len(owned)+1)
	out[domain.RootID] = domain.Node{ID: domain.RootID, Edges: m.edges(portal.Edges)}
	for _, id := range owned {
		out[m[id]] = m.node(m[id], graph[id])
	}
	return out, nil
}

// mapping is the id rewrite of one copy operation.
type mapping map[string]string

// newMapping rewrites owned ids and rejects any collision between them, or,
// when existing is set, with an id already in existing.
func newMapping(owned []string, suffix string, existing domain.Graph) (mapping, error) {
	m := make(mapping, len(owned))
	taken := make(map[string]string, len(owned))
	for _, id := range owned {
		newID := RewriteID(id, suffix)
		if newID == domain.RootID {
			return nil, &domain.IdentifierCollisionError{Original: id, Other: domain.RootID, Rewritten: newID}
		}
		if other, ok := taken[newID]; ok {
			return nil, &domain.IdentifierCollisionError{Original: other, Other: id, Rewritten: newID}
		}
		if _, ok := existing[newID]; ok {
			return nil, &domain.IdentifierCollisionError{Original: id, Other: newID, Rewritten: newID}
		}
		taken[newID] = id
		m[id] = newID
	}
	return m, nil
}

func (m mapping) node(newID string, n domain.Node) domain.Node {
	out := domain.Node{ID: newID, Type: n.Type, Edges: m.edges(n.Edges)}
	if n.Data != nil {
		out.Data = m.object(n.Data)
	}
	return out
}

func (m mapping) edges(edges []string) []string {
	if edges == nil {
		return nil
	}
	out := make([]string, len(edges))
	for i, id := range edges {
		if newID, ok := m[id]; ok {
			out[i] = newID
		} else {
			out[i] = id
		}
	}
	return out
}

func (m mapping) object(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k == flowIDKey {
			out[k] = domain.CloneValue(v)
			continue
		}
		out[k] = m.value(v)
	}
	return out
}

func (m mapping) value(v any) any {
	switch t := v.(type) {
	case string:
		if newID, ok := m[t]; ok {
			return newID
		}
		return t
	case map[string]any:
		return m.object(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = m.value(item)
		}
		return out
	case []string:
		return m.value(domain.CloneValue(t))
	default:
		return t
	}
}
