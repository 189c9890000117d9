package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// RootID is the reserved key of the root node of every graph.
const RootID = "_root"

// NodeType is the integer tag of a node's component kind.
// It is serialised as a small integer, never as a string.
type NodeType int

// The closed set of component kinds a flow may contain.
const (
	TypeResult              NodeType = 3
	TypeTaskList            NodeType = 7
	TypeNotice              NodeType = 8
	TypeFindProperty        NodeType = 9
	TypeDrawBoundary        NodeType = 10
	TypeNextSteps           NodeType = 11
	TypeConfirmation        NodeType = 12
	TypePlanningConstraints NodeType = 13
	TypePropertyInformation NodeType = 14
	TypeQuestion            NodeType = 100
	TypeChecklist           NodeType = 105
	TypeTextInput           NodeType = 110
	TypeDateInput           NodeType = 120
	TypeAddressInput        NodeType = 130
	TypeContactInput        NodeType = 135
	TypeFileUpload          NodeType = 140
	TypeUploadAndLabel      NodeType = 145
	TypeNumberInput         NodeType = 150
	TypeAnswer              NodeType = 200
	TypeContent             NodeType = 250
	TypeInternalPortal      NodeType = 300
	TypeExternalPortal      NodeType = 310
	TypeSection             NodeType = 360
	TypeSetValue            NodeType = 380
	TypePay                 NodeType = 400
	TypeFilter              NodeType = 500
	TypeReview              NodeType = 600
	TypeSend                NodeType = 650
	TypeCalculate           NodeType = 700
	TypeSetFee              NodeType = 710
)

var typeNames = map[NodeType]string{
	TypeResult:              "Result",
	TypeTaskList:            "TaskList",
	TypeNotice:              "Notice",
	TypeFindProperty:        "FindProperty",
	TypeDrawBoundary:        "DrawBoundary",
	TypeNextSteps:           "NextSteps",
	TypeConfirmation:        "Confirmation",
	TypePlanningConstraints: "PlanningConstraints",
	TypePropertyInformation: "PropertyInformation",
	TypeQuestion:            "Question",
	TypeChecklist:           "Checklist",
	TypeTextInput:           "TextInput",
	TypeDateInput:           "DateInput",
	TypeAddressInput:        "AddressInput",
	TypeContactInput:        "ContactInput",
	TypeFileUpload:          "FileUpload",
	TypeUploadAndLabel:      "UploadAndLabel",
	TypeNumberInput:         "NumberInput",
	TypeAnswer:              "Answer",
	TypeContent:             "Content",
	TypeInternalPortal:      "InternalPortal",
	TypeExternalPortal:      "ExternalPortal",
	TypeSection:             "Section",
	TypeSetValue:            "SetValue",
	TypePay:                 "Pay",
	TypeFilter:              "Filter",
	TypeReview:              "Review",
	TypeSend:                "Send",
	TypeCalculate:           "Calculate",
	TypeSetFee:              "SetFee",
}

// String returns the component name, or "NodeType(n)" for unknown tags.
func (t NodeType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Known reports whether t belongs to the closed set of component kinds.
func (t NodeType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseNodeType resolves a component name such as "Question" to its tag.
// Matching is case-insensitive.
func ParseNodeType(name string) (NodeType, bool) {
	for t, n := range typeNames {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return 0, false
}

// NodeTypes returns every known node type in ascending order.
func NodeTypes() []NodeType {
	types := make([]NodeType, 0, len(typeNames))
	for t := range typeNames {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Node represents a single typed unit of a flow graph.
// The root node has a zero Type and carries only Edges.
type Node struct {
	ID    string         `json:"id,omitempty" yaml:"id,omitempty"`
	Type  NodeType       `json:"type,omitempty" yaml:"type,omitempty"`
	Data  map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Edges []string       `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// IsRoot reports whether the node is the graph root.
func (n Node) IsRoot() bool {
	return n.ID == RootID
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := Node{ID: n.ID, Type: n.Type, Data: CloneMap(n.Data)}
	if n.Edges != nil {
		out.Edges = append([]string(nil), n.Edges...)
	}
	return out
}

// Equal compares type, data and edges. Edge order matters.
func (n Node) Equal(other Node) bool {
	if n.Type != other.Type || len(n.Edges) != len(other.Edges) {
		return false
	}
	for i := range n.Edges {
		if n.Edges[i] != other.Edges[i] {
			return false
		}
	}
	return EqualMaps(n.Data, other.Data)
}

// Str returns a string-valued data field, or "".
func (n Node) Str(key string) string {
	return String(n.Data[key])
}

// Fn returns the passport variable the node writes to.
func (n Node) Fn() string {
	return n.Str("fn")
}

// Decode maps the node's data onto a typed variant struct (see data.go).
// Inputs are weakly typed so "true"/1 and json.Number decode naturally.
func (n Node) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(n.Data); err != nil {
		return fmt.Errorf("node %s (%s): invalid data: %w", n.ID, n.Type, err)
	}
	return nil
}
