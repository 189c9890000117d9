package dsl

import "github.com/aretw0/flowgraph/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Type sets the component kind of the node.
func (n *NodeBuilder) Type(t domain.NodeType) *NodeBuilder {
	n.node.Type = t
	return n
}

// Set stores a data field.
func (n *NodeBuilder) Set(key string, value any) *NodeBuilder {
	if n.node.Data == nil {
		n.node.Data = make(map[string]any)
	}
	n.node.Data[key] = value
	return n
}

// To appends children to the node's edges, in order.
func (n *NodeBuilder) To(targets ...string) *NodeBuilder {
	n.node.Edges = append(n.node.Edges, targets...)
	return n
}

// Question marks the node as a Question writing its answer to fn.
func (n *NodeBuilder) Question(text, fn string) *NodeBuilder {
	n.Type(domain.TypeQuestion).Set("text", text)
	if fn != "" {
		n.Set("fn", fn)
	}
	return n
}

// Checklist marks the node as a Checklist writing its answers to fn.
func (n *NodeBuilder) Checklist(text, fn string) *NodeBuilder {
	n.Type(domain.TypeChecklist).Set("text", text)
	if fn != "" {
		n.Set("fn", fn)
	}
	return n
}

// Answer marks the node as an Answer. An empty val is omitted.
func (n *NodeBuilder) Answer(text, val string) *NodeBuilder {
	n.Type(domain.TypeAnswer).Set("text", text)
	if val != "" {
		n.Set("val", val)
	}
	return n
}

// Section marks the node as a Section.
func (n *NodeBuilder) Section(title string) *NodeBuilder {
	return n.Type(domain.TypeSection).Set("title", title)
}

// Content marks the node as a Content block holding html.
func (n *NodeBuilder) Content(html string) *NodeBuilder {
	return n.Type(domain.TypeContent).Set("content", html)
}

// Notice marks the node as a Notice.
func (n *NodeBuilder) Notice(title string) *NodeBuilder {
	return n.Type(domain.TypeNotice).Set("title", title)
}

// Portal marks the node as an InternalPortal.
func (n *NodeBuilder) Portal(text string) *NodeBuilder {
	return n.Type(domain.TypeInternalPortal).Set("text", text)
}

// External marks the node as an ExternalPortal to flowID.
func (n *NodeBuilder) External(flowID string) *NodeBuilder {
	return n.Type(domain.TypeExternalPortal).Set("flowId", flowID)
}

// Pay marks the node as a Pay component writing to fn.
func (n *NodeBuilder) Pay(title, fn string) *NodeBuilder {
	return n.Type(domain.TypePay).Set("title", title).Set("fn", fn)
}

// SetFee marks the node as a SetFee component writing to fn.
func (n *NodeBuilder) SetFee(fn string) *NodeBuilder {
	return n.Type(domain.TypeSetFee).Set("fn", fn)
}

// Templated flags the node as requiring customisation in dependent flows.
func (n *NodeBuilder) Templated(instructions string) *NodeBuilder {
	return n.Set("areTemplatedNodeInstructionsRequired", true).
		Set("templatedNodeInstructions", instructions)
}

// Build returns a copy of the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	out := n.node.Clone()
	if out.ID == domain.RootID {
		out.Type = 0
		out.Data = nil
	}
	return out
}
