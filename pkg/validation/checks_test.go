package validation_test

import (
	"testing"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(t domain.NodeType, data map[string]any, edges ...string) domain.Node {
	return domain.Node{Type: t, Data: data, Edges: edges}
}

func run(t *testing.T, in validation.Input, title string) validation.Result {
	t.Helper()
	report := validation.Default().Run(in)
	res, ok := report.Get(title)
	require.True(t, ok, "missing check %q", title)
	return res
}

func TestDefault_Order(t *testing.T) {
	assert.Equal(t, []string{
		"Sections", "Fees", "Invite to Pay", "File types",
		"Project types", "Planning Constraints", "Templated nodes",
	}, validation.Default().Titles())
}

func TestDefault_EmptyFlowIsNotApplicable(t *testing.T) {
	report := validation.Default().Run(validation.Input{Graph: domain.Graph{domain.RootID: {}}})
	require.Len(t, report.Checks, 7)
	for _, c := range report.Checks {
		assert.Equal(t, validation.StatusNotApplicable, c.Status, c.Title)
	}
	assert.True(t, report.Passed())
}

func TestFees(t *testing.T) {
	tests := []struct {
		name  string
		graph domain.Graph
		want  validation.Status
	}{
		{
			name:  "no pay",
			graph: domain.Graph{domain.RootID: {Edges: []string{"fee"}}, "fee": node(domain.TypeSetFee, nil)},
			want:  validation.StatusNotApplicable,
		},
		{
			name:  "pay without setfee",
			graph: domain.Graph{domain.RootID: {Edges: []string{"pay"}}, "pay": node(domain.TypePay, nil)},
			want:  validation.StatusFail,
		},
		{
			name: "pay with two setfees",
			graph: domain.Graph{
				domain.RootID: {Edges: []string{"f1", "f2", "pay"}},
				"f1":          node(domain.TypeSetFee, nil),
				"f2":          node(domain.TypeSetFee, nil),
				"pay":         node(domain.TypePay, nil),
			},
			want: validation.StatusFail,
		},
		{
			name: "pay with one setfee",
			graph: domain.Graph{
				domain.RootID: {Edges: []string{"fee", "pay"}},
				"fee":         node(domain.TypeSetFee, nil),
				"pay":         node(domain.TypePay, nil),
			},
			want: validation.StatusPass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, validation.Input{Graph: tt.graph}, validation.TitleFees)
			assert.Equal(t, tt.want, res.Status)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestSections(t *testing.T) {
	t.Run("must start with a section", func(t *testing.T) {
		g := domain.Graph{
			domain.RootID: {Edges: []string{"notice", "s1"}},
			"notice":      node(domain.TypeNotice, nil),
			"s1":          node(domain.TypeSection, map[string]any{"title": "One"}),
		}
		res := run(t, validation.Input{Graph: g}, validation.TitleSections)
		assert.Equal(t, validation.StatusFail, res.Status)
		assert.Contains(t, res.Message, "must start with a Section")
	})

	t.Run("valid", func(t *testing.T) {
		g := domain.Graph{
			domain.RootID: {Edges: []string{"s1", "notice"}},
			"notice":      node(domain.TypeNotice, nil),
			"s1":          node(domain.TypeSection, map[string]any{"title": "One"}),
		}
		assert.Equal(t, validation.StatusPass, run(t, validation.Input{Graph: g}, validation.TitleSections).Status)
	})

	t.Run("section inside a flattened external portal", func(t *testing.T) {
		g := domain.Graph{
			domain.RootID: {Edges: []string{"s1", "ext"}},
			"s1":          node(domain.TypeSection, nil),
			"ext":         node(domain.TypeInternalPortal, map[string]any{"flowId": "other"}, "other"),
			"other":       node(domain.TypeInternalPortal, map[string]any{"flattenedFromExternalPortal": true}, "s2"),
			"s2":          node(domain.TypeSection, nil),
		}
		res := run(t, validation.Input{Graph: g}, validation.TitleSections)
		assert.Equal(t, validation.StatusFail, res.Status)
		assert.Contains(t, res.Message, "External Portals")
	})

	t.Run("section inside an ordinary internal portal is not flagged here", func(t *testing.T) {
		g := domain.Graph{
			domain.RootID: {Edges: []string{"s1", "portal"}},
			"s1":          node(domain.TypeSection, nil),
			"portal":      node(domain.TypeInternalPortal, map[string]any{"text": "Portal"}, "s2"),
			"s2":          node(domain.TypeSection, nil),
		}
		assert.Equal(t, validation.StatusPass, run(t, validation.Input{Graph: g}, validation.TitleSections).Status)
	})
}

func inviteToPayGraph() domain.Graph {
	return domain.Graph{
		domain.RootID: {Edges: []string{"find", "types", "fee", "pay", "send"}},
		"find":        node(domain.TypeFindProperty, nil),
		"types":       node(domain.TypeChecklist, map[string]any{"fn": validation.ProjectTypeFn}, "ext"),
		"ext":         node(domain.TypeAnswer, map[string]any{"val": "extend.rear"}),
		"fee":         node(domain.TypeSetFee, nil),
		"pay": node(domain.TypePay, map[string]any{
			"allowInviteToPay":        true,
			"inviteToPayDestinations": []any{"bops"},
		}),
		"send": node(domain.TypeSend, map[string]any{"destinations": []any{"bops"}}),
	}
}

func TestInviteToPay(t *testing.T) {
	t.Run("not enabled", func(t *testing.T) {
		g := inviteToPayGraph()
		g["pay"] = node(domain.TypePay, map[string]any{"fn": "application.fee"})
		assert.Equal(t, validation.StatusNotApplicable, run(t, validation.Input{Graph: g}, validation.TitleInviteToPay).Status)
	})

	t.Run("valid", func(t *testing.T) {
		assert.Equal(t, validation.StatusPass, run(t, validation.Input{Graph: inviteToPayGraph()}, validation.TitleInviteToPay).Status)
	})

	cases := map[string]func(domain.Graph){
		"two sends":        func(g domain.Graph) { g["send2"] = node(domain.TypeSend, nil) },
		"two pays":         func(g domain.Graph) { g["pay2"] = node(domain.TypePay, nil) },
		"no find property":  func(g domain.Graph) { delete(g, "find") },
		"no project type":  func(g domain.Graph) { g["types"] = node(domain.TypeChecklist, map[string]any{"fn": "other"}, "ext") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			g := inviteToPayGraph()
			mutate(g)
			assert.Equal(t, validation.StatusFail, run(t, validation.Input{Graph: g}, validation.TitleInviteToPay).Status)
		})
	}
}

func TestFileTypes(t *testing.T) {
	t.Run("hidden drop zones are not applicable", func(t *testing.T) {
		g := domain.Graph{
			domain.RootID: {Edges: []string{"up"}},
			"up":          node(domain.TypeFileUpload, map[string]any{"fn": "bogus", "hideDropZone": true}),
		}
		assert.Equal(t, validation.StatusNotApplicable, run(t, validation.Input{Graph: g}, validation.TitleFileTypes).Status)
	})

	t.Run("unsupported field", func(t *testing.T) {
		g := domain.Graph{
			domain.RootID: {Edges: []string{"up", "label"}},
			"up":          node(domain.TypeFileUpload, map[string]any{"fn": "locationPlan"}),
			"label": node(domain.TypeUploadAndLabel, map[string]any{"fileTypes": []any{
				map[string]any{"name": "Roof", "fn": "roofPlan.existing"},
				map[string]any{"name": "Nonsense", "fn": "nonsense.plan"},
			}}),
		}
		res := run(t, validation.Input{Graph: g}, validation.TitleFileTypes)
		assert.Equal(t, validation.StatusFail, res.Status)
		assert.Contains(t, res.Message, "nonsense.plan")
		assert.NotContains(t, res.Message, "roofPlan.existing")
	})

	t.Run("all supported", func(t *testing.T) {
		g := domain.Graph{
			domain.RootID: {Edges: []string{"up"}},
			"up":          node(domain.TypeFileUpload, map[string]any{"fn": "sitePlan.proposed"}),
		}
		assert.Equal(t, validation.StatusPass, run(t, validation.Input{Graph: g}, validation.TitleFileTypes).Status)
	})
}

func TestChecks_MalformedDataFails(t *testing.T) {
	bad := map[string]any{"fn": map[string]any{"not": "a string"}}
	cases := []struct {
		title string
		node  domain.Node
		in    validation.Input
	}{
		{validation.TitleFileTypes, node(domain.TypeFileUpload, bad), validation.Input{}},
		{validation.TitleFileTypes, node(domain.TypeUploadAndLabel, map[string]any{"fileTypes": "roof"}), validation.Input{}},
		{validation.TitleInviteToPay, node(domain.TypePay, bad), validation.Input{}},
		{validation.TitleTemplatedNodes, node(domain.TypeNotice, map[string]any{"areTemplatedNodeInstructionsRequired": "maybe"}), validation.Input{Templated: true}},
	}
	for _, tc := range cases {
		t.Run(tc.title+"/"+tc.node.Type.String(), func(t *testing.T) {
			in := tc.in
			in.Graph = domain.Graph{
				domain.RootID: {Edges: []string{"broken"}},
				"broken":      tc.node,
			}
			res := run(t, in, tc.title)
			assert.Equal(t, validation.StatusFail, res.Status)
			assert.Contains(t, res.Message, "Node broken has malformed")
		})
	}
}

func TestProjectTypes(t *testing.T) {
	g := inviteToPayGraph()
	assert.Equal(t, validation.StatusPass, run(t, validation.Input{Graph: g}, validation.TitleProjectTypes).Status)

	g["types"] = node(domain.TypeChecklist, map[string]any{"fn": validation.ProjectTypeFn}, "ext", "odd")
	g["odd"] = node(domain.TypeAnswer, map[string]any{"val": "build.castle"})
	res := run(t, validation.Input{Graph: g}, validation.TitleProjectTypes)
	assert.Equal(t, validation.StatusFail, res.Status)
	assert.Contains(t, res.Message, "build.castle")
}

func TestPlanningConstraints(t *testing.T) {
	g := domain.Graph{
		domain.RootID: {Edges: []string{"pc"}},
		"pc":          node(domain.TypePlanningConstraints, nil),
	}
	assert.Equal(t, validation.StatusPass, run(t, validation.Input{Graph: g}, validation.TitlePlanningConstraints).Status)

	g["pc2"] = node(domain.TypePlanningConstraints, nil)
	assert.Equal(t, validation.StatusFail, run(t, validation.Input{Graph: g}, validation.TitlePlanningConstraints).Status)
}

func TestTemplatedNodes(t *testing.T) {
	g := domain.Graph{
		domain.RootID: {Edges: []string{"q", "notice"}},
		"q":           node(domain.TypeQuestion, map[string]any{"areTemplatedNodeInstructionsRequired": true}),
		"notice":      node(domain.TypeNotice, map[string]any{"title": "Fixed"}),
	}

	assert.Equal(t, validation.StatusNotApplicable, run(t, validation.Input{Graph: g}, validation.TitleTemplatedNodes).Status)

	res := run(t, validation.Input{Graph: g, Templated: true}, validation.TitleTemplatedNodes)
	assert.Equal(t, validation.StatusFail, res.Status)
	assert.Contains(t, res.Message, "q")

	edits := domain.TemplatedFlowEdits{"q": {"text": "Customised"}}
	assert.Equal(t, validation.StatusPass, run(t, validation.Input{Graph: g, Templated: true, Edits: edits}, validation.TitleTemplatedNodes).Status)
}

func TestRegistry_Register(t *testing.T) {
	r := validation.NewRegistry()
	r.Register("Custom", func(in validation.Input) (validation.Status, string) {
		return validation.StatusFail, "always"
	})
	r.Register("Custom", func(in validation.Input) (validation.Status, string) {
		return validation.StatusPass, "replaced"
	})

	report := r.Run(validation.Input{})
	require.Len(t, report.Checks, 1)
	assert.Equal(t, validation.StatusPass, report.Checks[0].Status)
	assert.Empty(t, report.Failed())
}

func TestWithAllowList(t *testing.T) {
	allow, err := validation.ParseAllowList([]byte("fileTypes: [custom.plan]\nprojectTypes: []\n"))
	require.NoError(t, err)

	g := domain.Graph{
		domain.RootID: {Edges: []string{"up"}},
		"up":          node(domain.TypeFileUpload, map[string]any{"fn": "custom.plan"}),
	}
	report := validation.Default(validation.WithAllowList(allow)).Run(validation.Input{Graph: g})
	res, _ := report.Get(validation.TitleFileTypes)
	assert.Equal(t, validation.StatusPass, res.Status)
}
