package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() domain.Graph {
	return domain.Graph{
		domain.RootID: {Edges: []string{"section", "q"}},
		"section":     {Type: domain.TypeSection, Data: map[string]any{"title": "About you"}},
		"q": {
			Type:  domain.TypeQuestion,
			Data:  map[string]any{"text": "Is it listed?", "fn": "property.listed"},
			Edges: []string{"yes", "no"},
		},
		"yes":    {Type: domain.TypeAnswer, Data: map[string]any{"text": "Yes", "val": "listed"}, Edges: []string{"notice"}},
		"no":     {Type: domain.TypeAnswer, Data: map[string]any{"text": "No"}, Edges: []string{"notice"}},
		"notice": {Type: domain.TypeNotice, Data: map[string]any{"title": "Thanks"}},
	}
}

func TestGraph_Lookup(t *testing.T) {
	g := sampleGraph()

	n, ok := g.NodeByID("q")
	require.True(t, ok)
	assert.Equal(t, "q", n.ID)
	assert.Equal(t, domain.TypeQuestion, n.Type)
	assert.Equal(t, "property.listed", n.Fn())

	_, ok = g.NodeByID("missing")
	assert.False(t, ok)

	root, ok := g.Root()
	require.True(t, ok)
	assert.True(t, root.IsRoot())
	assert.Equal(t, []string{"section", "q"}, g.EdgesOf(domain.RootID))
	assert.Nil(t, g.EdgesOf("notice"))
}

func TestGraph_EdgesOfReturnsCopy(t *testing.T) {
	g := sampleGraph()
	edges := g.EdgesOf("q")
	edges[0] = "mutated"
	assert.Equal(t, []string{"yes", "no"}, g["q"].Edges)
}

func TestGraph_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, sampleGraph().Validate())
	})

	t.Run("missing root", func(t *testing.T) {
		g := sampleGraph()
		delete(g, domain.RootID)
		assert.ErrorIs(t, g.Validate(), domain.ErrMissingRoot)
	})

	t.Run("broken reference", func(t *testing.T) {
		g := sampleGraph()
		g["no"] = domain.Node{Type: domain.TypeAnswer, Edges: []string{"ghost"}}

		err := g.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrBrokenReference)

		var ref *domain.BrokenReferenceError
		require.True(t, errors.As(err, &ref))
		assert.Equal(t, "no", ref.Parent)
		assert.Equal(t, "ghost", ref.Target)
	})

	t.Run("external portal flowId is not an edge", func(t *testing.T) {
		g := domain.Graph{
			domain.RootID: {Edges: []string{"ext"}},
			"ext":         {Type: domain.TypeExternalPortal, Data: map[string]any{"flowId": "other-flow"}},
		}
		assert.NoError(t, g.Validate())
	})
}

func TestGraph_ValidateTypes(t *testing.T) {
	g := sampleGraph()
	assert.NoError(t, g.ValidateTypes())

	g["odd"] = domain.Node{Type: domain.NodeType(42)}
	assert.ErrorIs(t, g.ValidateTypes(), domain.ErrUnknownNodeType)
}

func TestGraph_WalkVisitsSharedNodesOnce(t *testing.T) {
	g := sampleGraph()

	var order []string
	g.Walk(domain.RootID, func(n domain.Node, depth int) bool {
		order = append(order, n.ID)
		return true
	})
	assert.Equal(t, []string{domain.RootID, "section", "q", "yes", "notice", "no"}, order)
	assert.Equal(t, []string{"yes", "notice", "no"}, g.Descendants("q"))
}

func TestGraph_WalkStopsDescent(t *testing.T) {
	g := sampleGraph()

	var order []string
	g.Walk(domain.RootID, func(n domain.Node, depth int) bool {
		order = append(order, n.ID)
		return n.ID != "q"
	})
	assert.Equal(t, []string{domain.RootID, "section", "q"}, order)
}

func TestGraph_ParentsAndCounts(t *testing.T) {
	g := sampleGraph()
	assert.Equal(t, []string{"no", "yes"}, g.ParentsOf("notice"))
	assert.Empty(t, g.ParentsOf(domain.RootID))

	counts := g.CountByType()
	assert.Equal(t, 2, counts[domain.TypeAnswer])
	assert.Equal(t, 1, counts[domain.TypeSection])
	assert.True(t, g.HasType(domain.TypeNotice))
	assert.False(t, g.HasType(domain.TypePay))

	answers := g.NodesOfType(domain.TypeAnswer)
	require.Len(t, answers, 2)
	assert.Equal(t, "no", answers[0].ID)
}

func TestGraph_CloneIsDeep(t *testing.T) {
	g := sampleGraph()
	g["nested"] = domain.Node{Type: domain.TypeContent, Data: map[string]any{
		"meta": map[string]any{"tags": []any{"a"}},
	}}
	c := g.Clone()

	c["q"].Data["text"] = "changed"
	c["nested"].Data["meta"].(map[string]any)["tags"].([]any)[0] = "b"
	c["q"].Edges[0] = "other"

	assert.Equal(t, "Is it listed?", g["q"].Data["text"])
	assert.Equal(t, "a", g["nested"].Data["meta"].(map[string]any)["tags"].([]any)[0])
	assert.Equal(t, "yes", g["q"].Edges[0])
}

func TestGraph_JSON(t *testing.T) {
	raw := `{
		"_root": {"edges": ["q"]},
		"q": {"type": 100, "data": {"text": "Colour?"}, "edges": ["a"]},
		"a": {"type": 200, "data": {"text": "Red", "val": "red"}}
	}`

	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(raw), &g))
	assert.Equal(t, "q", g["q"].ID)
	assert.Equal(t, domain.TypeQuestion, g["q"].Type)
	assert.NoError(t, g.Validate())

	out, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestNode_Decode(t *testing.T) {
	n := domain.Node{
		ID:   "pay",
		Type: domain.TypePay,
		Data: map[string]any{
			"title":                   "Pay for your application",
			"fn":                      "application.fee.payable",
			"allowInviteToPay":        "true",
			"inviteToPayDestinations": []any{"bops"},
		},
	}

	var pay domain.PayData
	require.NoError(t, n.Decode(&pay))
	assert.True(t, pay.AllowInviteToPay)
	assert.Equal(t, []string{"bops"}, pay.InviteToPayDestinations)
	assert.True(t, pay.InviteToPay())

	bad := domain.Node{ID: "u", Type: domain.TypeUploadAndLabel, Data: map[string]any{"fileTypes": "nope"}}
	var upload domain.UploadAndLabelData
	assert.Error(t, bad.Decode(&upload))
}

func TestNodeType_String(t *testing.T) {
	assert.Equal(t, "ExternalPortal", domain.TypeExternalPortal.String())
	assert.Equal(t, "NodeType(42)", domain.NodeType(42).String())
	assert.False(t, domain.NodeType(0).Known())

	types := domain.NodeTypes()
	assert.Equal(t, domain.TypeResult, types[0])
	assert.Equal(t, domain.TypeSetFee, types[len(types)-1])
}
