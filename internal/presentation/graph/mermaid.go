package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/flowgraph/pkg/domain"
)

const maxLabel = 40

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromBreadcrumbs marks every answered node as visited.
func OverlayFromBreadcrumbs(crumbs domain.Breadcrumbs) *GraphOverlay {
	visited := make([]string, 0, len(crumbs))
	for id := range crumbs {
		visited = append(visited, id)
	}
	sort.Strings(visited)
	return &GraphOverlay{VisitedNodes: visited}
}

// GenerateMermaid produces a Mermaid flowchart of a flow graph.
// Nodes reachable from the root are emitted in traversal order, orphans
// after them in id order. It applies semantic styling:
//   - Root: ((Circle))
//   - Question / Checklist: {Rhombus}
//   - Answer: ([Stadium])
//   - Inputs: [/Parallelogram/]
//   - Portals: [[Subroutine]]
//   - Pay / SetFee / Send: {{Hexagon}}
//   - Default: [Rectangle]
//
// External portals point at a dotted flow node named after their flowId.
func GenerateMermaid(g domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var order []string
	seen := make(map[string]bool)
	g.Walk(domain.RootID, func(n domain.Node, _ int) bool {
		order = append(order, n.ID)
		seen[n.ID] = true
		return true
	})
	for _, id := range g.IDs() {
		if !seen[id] {
			order = append(order, id)
		}
	}

	externals := make(map[string]bool)
	for _, id := range order {
		node, _ := g.NodeByID(id)
		safeID := sanitizeMermaidID(id)
		opener, closer := shape(node)
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label(node), closer))

		for _, child := range node.Edges {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(child)))
		}

		if node.Type == domain.TypeExternalPortal {
			if flowID := node.Str("flowId"); flowID != "" {
				target := "flow_" + sanitizeMermaidID(flowID)
				if !externals[target] {
					externals[target] = true
					sb.WriteString(fmt.Sprintf("    %s[(\"%s\")]\n", target, escape(flowID)))
				}
				sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", safeID, target))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			// Breadcrumbs may outlive the nodes they were recorded against.
			if _, ok := g[id]; !ok {
				continue
			}
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if _, ok := g[overlay.CurrentNode]; ok {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func shape(n domain.Node) (string, string) {
	if n.IsRoot() {
		return "((", "))"
	}
	switch n.Type {
	case domain.TypeQuestion, domain.TypeChecklist:
		return "{", "}"
	case domain.TypeAnswer:
		return "([", "])"
	case domain.TypeTextInput, domain.TypeDateInput, domain.TypeAddressInput,
		domain.TypeContactInput, domain.TypeNumberInput, domain.TypeFileUpload,
		domain.TypeUploadAndLabel:
		return "[/", "/]"
	case domain.TypeInternalPortal, domain.TypeExternalPortal:
		return "[[", "]]"
	case domain.TypePay, domain.TypeSetFee, domain.TypeSend:
		return "{{", "}}"
	default:
		return "[", "]"
	}
}

// label prefers the node's human text and falls back to its type and id.
func label(n domain.Node) string {
	if n.IsRoot() {
		return "start"
	}
	for _, key := range []string{"text", "title", "content"} {
		if s := strings.TrimSpace(n.Str(key)); s != "" {
			return escape(truncate(s))
		}
	}
	return escape(fmt.Sprintf("%s %s", n.Type, n.ID))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLabel {
		return s
	}
	return string(r[:maxLabel-3]) + "..."
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
