package diff_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/flowgraph/pkg/diff"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func base() domain.Graph {
	return domain.Graph{
		domain.RootID: {Edges: []string{"q"}},
		"q":           {Type: domain.TypeQuestion, Data: map[string]any{"text": "Colour?", "fn": "colour"}, Edges: []string{"one", "two"}},
		"one":         {Type: domain.TypeAnswer, Data: map[string]any{"text": "Red", "val": "red"}},
		"two":         {Type: domain.TypeAnswer, Data: map[string]any{"text": "Blue", "val": "blue"}},
	}
}

func TestCompute_IdenticalGraphs(t *testing.T) {
	g := base()
	assert.Nil(t, diff.Compute(g, g))
	assert.Nil(t, diff.Compute(g, g.Clone()))
	assert.Nil(t, diff.Compute(domain.Graph{}, nil))
}

func TestCompute_IgnoresKeyOrderAndNumberEncoding(t *testing.T) {
	a := `{"_root":{"edges":["n"]},"n":{"type":150,"data":{"min":1,"max":10,"title":"How many?"}}}`
	b := `{"n":{"data":{"title":"How many?","max":10.0,"min":1},"type":150},"_root":{"edges":["n"]}}`

	var ga, gb domain.Graph
	require.NoError(t, json.Unmarshal([]byte(a), &ga))
	require.NoError(t, json.Unmarshal([]byte(b), &gb))

	assert.Nil(t, diff.Compute(ga, gb))

	gb["n"].Data["min"] = 1
	assert.Nil(t, diff.Compute(ga, gb))
}

func TestCompute_EdgeOrderIsSignificant(t *testing.T) {
	prev := base()
	cur := base()
	cur["q"] = domain.Node{Type: cur["q"].Type, Data: cur["q"].Data, Edges: []string{"two", "one"}}

	changes := diff.Compute(prev, cur)
	require.NotNil(t, changes)
	assert.Equal(t, []string{"q"}, changes.IDs())
}

func TestCompute_AddedRemovedModified(t *testing.T) {
	prev := base()
	cur := base()

	delete(cur, "two")
	cur["q"] = domain.Node{Type: domain.TypeQuestion, Data: map[string]any{"text": "Colour?", "fn": "colour"}, Edges: []string{"one", "three"}}
	cur["three"] = domain.Node{Type: domain.TypeAnswer, Data: map[string]any{"text": "Green"}}
	cur["one"].Data["text"] = "Crimson"

	changes := diff.Compute(prev, cur)
	require.NotNil(t, changes)
	assert.Equal(t, []string{"one", "q", "three", "two"}, changes.IDs())

	assert.Equal(t, "Crimson", changes["one"].Data["text"])
	assert.True(t, changes["two"].Removed)
	assert.Equal(t, "Blue", changes["two"].Data["text"])
	assert.Equal(t, domain.TypeAnswer, changes["three"].Type)

	s := changes.Summary()
	assert.Equal(t, []string{"three"}, s.Added)
	assert.Equal(t, []string{"two"}, s.Removed)
	assert.Equal(t, []string{"one", "q"}, s.Modified)
	assert.False(t, s.Empty())
}

func TestCompute_DoesNotAliasInputs(t *testing.T) {
	prev := base()
	cur := base()
	cur["one"].Data["text"] = "Crimson"

	changes := diff.Compute(prev, cur)
	changes["one"].Data["text"] = "mutated"
	assert.Equal(t, "Crimson", cur["one"].Data["text"])
}

func TestCompute_InsertionOrderIndependent(t *testing.T) {
	prev := base()

	build := func(order []string) domain.Graph {
		src := base()
		src["extra"] = domain.Node{Type: domain.TypeNotice, Data: map[string]any{"title": "Hi"}}
		g := domain.Graph{}
		for _, id := range order {
			g[id] = src[id]
		}
		return g
	}

	a := diff.Compute(prev, build([]string{domain.RootID, "q", "one", "two", "extra"}))
	b := diff.Compute(prev, build([]string{"extra", "two", "one", "q", domain.RootID}))
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"extra"}, a.IDs())
}
