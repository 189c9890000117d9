package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/flowgraph/internal/presentation/graph"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/dsl"
)

func sample() domain.Graph {
	b := dsl.New()
	b.Root().To("q1", "portal", "ext", "fee")
	b.Add("q1").Question(`Is it a "listed" building?`, "listed").To("a1", "a2")
	b.Add("a1").Answer("Yes", "true")
	b.Add("a2").Answer("No", "false")
	b.Add("portal").Portal("About the works").To("input-1")
	b.Add("input-1").Type(domain.TypeTextInput).Set("title", "Describe the works")
	b.Add("ext").External("fees.flow")
	b.Add("fee").Pay("Pay for your application", "application.fee")
	b.Add("orphan").Notice("Never shown")
	return b.Graph()
}

func TestGenerateMermaid_Shapes(t *testing.T) {
	got := graph.GenerateMermaid(sample(), nil)

	for _, want := range []string{
		"graph TD\n",
		`_root(("start"))`,
		`q1{"Is it a 'listed' building?"}`,
		`a1(["Yes"])`,
		`portal[["About the works"]]`,
		`input_1[/"Describe the works"/]`,
		`fee{{"Pay for your application"}}`,
		`orphan["Never shown"]`,
		`flow_fees_flow[("fees.flow")]`,
		"ext -.-> flow_fees_flow",
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "Overlay Styles")
}

func TestGenerateMermaid_EdgeOrder(t *testing.T) {
	got := graph.GenerateMermaid(sample(), nil)

	first := strings.Index(got, "_root --> q1")
	second := strings.Index(got, "_root --> portal")
	assert.True(t, first >= 0 && second > first, "edges follow the root's order")

	reachable := strings.Index(got, "fee{{")
	orphan := strings.Index(got, "orphan[")
	assert.Greater(t, orphan, reachable, "orphans are emitted last")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	overlay := graph.OverlayFromBreadcrumbs(domain.Breadcrumbs{
		"q1":   {Answers: []string{"a1"}},
		"gone": {Auto: true},
	})
	overlay.CurrentNode = "portal"

	got := graph.GenerateMermaid(sample(), overlay)

	assert.Contains(t, got, "classDef visited")
	assert.Contains(t, got, "class q1 visited;")
	assert.Contains(t, got, "class portal current;")
	assert.NotContains(t, got, "class gone", "crumbs for removed nodes are skipped")
}

func TestGenerateMermaid_LongLabels(t *testing.T) {
	b := dsl.New()
	b.Root().To("c")
	b.Add("c").Content(strings.Repeat("x", 100))

	got := graph.GenerateMermaid(b.Graph(), nil)
	assert.Contains(t, got, strings.Repeat("x", 37)+"...")
	assert.NotContains(t, got, strings.Repeat("x", 38))
}
