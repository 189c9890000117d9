// Package template rebuilds a dependent flow from its source template and
// the customisations the dependent flow made.
package template

import (
	"sort"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Reconcile returns the effective graph of a dependent flow.
//
// Every node comes from source. When edits has an entry for the node, the
// entry is deep-merged over the node's data with the edit winning per key.
// Edits for nodes the source no longer has are dropped; see Orphans.
func Reconcile(source domain.Graph, edits domain.TemplatedFlowEdits) domain.Graph {
	out := make(domain.Graph, len(source))
	for id, n := range source {
		c := n.Clone()
		c.ID = id
		if overlay, ok := edits[id]; ok && len(overlay) > 0 {
			c.Data = domain.MergeData(n.Data, overlay)
		}
		out[id] = c
	}
	return out
}

// Orphans returns, sorted, the edited node ids missing from source.
func Orphans(source domain.Graph, edits domain.TemplatedFlowEdits) []string {
	var out []string
	for id := range edits {
		if _, ok := source[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
