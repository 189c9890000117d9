// Package reconcile invalidates the breadcrumbs of an in-progress session
// when the flow it was built against is republished.
package reconcile

import (
	"sort"

	"github.com/aretw0/flowgraph/pkg/diff"
	"github.com/aretw0/flowgraph/pkg/domain"
)

// Result is the outcome of a reconciliation.
type Result struct {
	// Breadcrumbs are the breadcrumbs that remain valid.
	Breadcrumbs domain.Breadcrumbs `json:"reconciledBreadcrumbs"`
	// AlteredNodes is the diff between the two graphs.
	AlteredNodes diff.Changes `json:"alteredNodes"`
	// RemovedIDs are the breadcrumb keys that were dropped, sorted.
	RemovedIDs []string `json:"removedBreadcrumbIds,omitempty"`
	// AlteredSectionIDs are the Sections containing removed breadcrumbs,
	// in flow order.
	AlteredSectionIDs []string `json:"alteredSectionIds,omitempty"`
	// Changed is true when at least one breadcrumb was removed.
	Changed bool `json:"changed"`
}

// Breadcrumbs reconciles crumbs, recorded against previous, with current.
//
// A breadcrumb is removed when its node, or one of its selected answers, was
// altered. Any other breadcrumb whose selected answer carries the same
// non-empty data.val as an answer of a removed breadcrumb is removed too,
// since it was derived from an answer that is no longer valid. The input is
// never mutated.
func Breadcrumbs(crumbs domain.Breadcrumbs, previous, current domain.Graph) Result {
	changes := diff.Compute(previous, current)
	if changes == nil {
		return Result{Breadcrumbs: crumbs.Clone()}
	}

	ids := make([]string, 0, len(crumbs))
	for id := range crumbs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	removed := make(map[string]bool)
	for _, id := range ids {
		if changes.Has(id) || anyAltered(crumbs[id].Answers, changes) {
			removed[id] = true
		}
	}

	vals := make(map[string]bool)
	for id := range removed {
		for _, answer := range crumbs[id].Answers {
			if v := valueOf(answer, previous, current); v != "" {
				vals[v] = true
			}
		}
	}
	if len(vals) > 0 {
		for _, id := range ids {
			if removed[id] {
				continue
			}
			for _, answer := range crumbs[id].Answers {
				if vals[valueOf(answer, current, previous)] {
					removed[id] = true
					break
				}
			}
		}
	}

	res := Result{
		Breadcrumbs:  make(domain.Breadcrumbs, len(crumbs)-len(removed)),
		AlteredNodes: changes,
		Changed:      len(removed) > 0,
	}
	for _, id := range ids {
		if removed[id] {
			res.RemovedIDs = append(res.RemovedIDs, id)
			continue
		}
		res.Breadcrumbs[id] = crumbs[id].Clone()
	}
	if current.HasType(domain.TypeSection) {
		res.AlteredSectionIDs = affectedSections(res.RemovedIDs, previous, current)
	}
	return res
}

func anyAltered(answers []string, changes diff.Changes) bool {
	for _, a := range answers {
		if changes.Has(a) {
			return true
		}
	}
	return false
}

// valueOf returns the data.val of node id, looked up in primary first.
func valueOf(id string, primary, fallback domain.Graph) string {
	if n, ok := primary[id]; ok {
		if v := n.Str("val"); v != "" {
			return v
		}
	}
	if n, ok := fallback[id]; ok {
		return n.Str("val")
	}
	return ""
}

// affectedSections maps removed ids to their nearest preceding top-level
// Section. Ids no longer in current are placed using previous.
func affectedSections(removed []string, previous, current domain.Graph) []string {
	if len(removed) == 0 {
		return nil
	}
	inCurrent, order := SectionIndex(current)
	inPrevious, _ := SectionIndex(previous)

	hit := make(map[string]bool)
	for _, id := range removed {
		section, ok := inCurrent[id]
		if !ok {
			section, ok = inPrevious[id]
		}
		if ok {
			hit[section] = true
		}
	}

	out := make([]string, 0, len(hit))
	for section := range hit {
		if _, ok := order[section]; ok {
			out = append(out, section)
		}
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

// SectionIndex assigns every node reachable from the root to the nearest
// preceding top-level Section in traversal order. It also returns the
// position of each top-level Section. Nodes before the first Section are
// not assigned.
func SectionIndex(g domain.Graph) (map[string]string, map[string]int) {
	owner := make(map[string]string)
	order := make(map[string]int)

	current := ""
	visited := make(map[string]bool)
	for i, top := range g.EdgesOf(domain.RootID) {
		if g[top].Type == domain.TypeSection {
			current = top
			order[top] = i
		}
		var visit func(id string)
		visit = func(id string) {
			if visited[id] {
				return
			}
			visited[id] = true
			if current != "" {
				owner[id] = current
			}
			for _, child := range g[id].Edges {
				visit(child)
			}
		}
		visit(top)
	}
	return owner, order
}
