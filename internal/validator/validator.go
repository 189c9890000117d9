// Package validator lints the structure of a flow graph beyond the integrity
// rules domain.Graph.Validate enforces.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Issue is one structural finding.
type Issue struct {
	NodeID  string `json:"nodeId"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("'%s': %s", i.NodeID, i.Message)
}

// Lint crawls the graph from the root and reports, in a stable order:
// missing edge targets, nodes unreachable from the root, answers outside a
// Question or Checklist, questions without answers and external portals
// that own edges or name no flow.
func Lint(g domain.Graph) []Issue {
	var issues []Issue
	if _, ok := g[domain.RootID]; !ok {
		return []Issue{{NodeID: domain.RootID, Message: "missing root node"}}
	}

	// Crawler
	visited := make(map[string]bool)
	queue := []string{domain.RootID}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		node, ok := g.NodeByID(currentID)
		if !ok {
			continue
		}
		for _, target := range node.Edges {
			if _, ok := g[target]; !ok {
				issues = append(issues, Issue{NodeID: currentID, Message: fmt.Sprintf("edge to missing node '%s'", target)})
				continue
			}
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	for _, id := range g.IDs() {
		node, _ := g.NodeByID(id)
		if !visited[id] {
			issues = append(issues, Issue{NodeID: id, Message: "unreachable from the root"})
		}

		switch node.Type {
		case domain.TypeAnswer:
			for _, parent := range g.ParentsOf(id) {
				if t := g[parent].Type; t != domain.TypeQuestion && t != domain.TypeChecklist {
					issues = append(issues, Issue{NodeID: id, Message: fmt.Sprintf("answer under %s '%s'", t, parent)})
				}
			}
		case domain.TypeQuestion, domain.TypeChecklist:
			if !hasAnswer(g, node) {
				issues = append(issues, Issue{NodeID: id, Message: fmt.Sprintf("%s has no answers", node.Type)})
			}
		case domain.TypeExternalPortal:
			if len(node.Edges) > 0 {
				issues = append(issues, Issue{NodeID: id, Message: "external portal owns edges"})
			}
			if node.Str("flowId") == "" {
				issues = append(issues, Issue{NodeID: id, Message: "external portal names no flow"})
			}
		}
	}
	return issues
}

func hasAnswer(g domain.Graph, n domain.Node) bool {
	for _, child := range n.Edges {
		if g[child].Type == domain.TypeAnswer {
			return true
		}
	}
	return false
}

// ValidateGraph returns the lint issues as a single error, or nil.
func ValidateGraph(g domain.Graph) error {
	issues := Lint(g)
	if len(issues) == 0 {
		return nil
	}
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = issue.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(issues), strings.Join(lines, "\n- "))
}
