package flowgraph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/pkg/adapters/memory"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/dsl"
	"github.com/aretw0/flowgraph/pkg/validation"
)

type fixture struct {
	graphs   *memory.GraphStore
	sessions *memory.Store
	edits    *memory.EditsStore
	svc      *flowgraph.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		graphs:   memory.NewGraphStore(),
		sessions: memory.NewStore(),
		edits:    memory.NewEditsStore(),
	}
	f.svc = flowgraph.NewService(flowgraph.New(), f.graphs, f.sessions, f.edits)
	return f
}

func (f *fixture) insert(t *testing.T, flow domain.Flow) string {
	t.Helper()
	id, err := f.graphs.InsertFlow(context.Background(), flow)
	require.NoError(t, err)
	return id
}

func (f *fixture) publish(t *testing.T, flowID string) *domain.Snapshot {
	t.Helper()
	snap, _, err := f.svc.Publish(context.Background(), flowID, flowgraph.PublishRequest{PublisherID: "tester"})
	require.NoError(t, err)
	return snap
}

func TestService_ValidateDraft(t *testing.T) {
	f := newFixture(t)
	id := f.insert(t, domain.Flow{ID: "flow", Data: simpleGraph()})

	report, err := f.svc.ValidateDraft(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, flowgraph.MessageChangesQueued, report.Message)
	assert.Len(t, report.AlteredNodes, len(simpleGraph()))
	assert.Len(t, report.Checks, len(validation.Default().Titles()))
	assert.True(t, report.Passed())
}

func TestService_ValidateDraftUnknownFlow(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ValidateDraft(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestService_Publish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.insert(t, domain.Flow{ID: "flow", Data: simpleGraph()})

	snap := f.publish(t, id)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, "tester", snap.PublisherID)

	t.Run("NothingToPublish", func(t *testing.T) {
		_, report, err := f.svc.Publish(ctx, id, flowgraph.PublishRequest{})
		assert.ErrorIs(t, err, domain.ErrNothingToPublish)
		require.NotNil(t, report)
		assert.Equal(t, flowgraph.MessageNoChanges, report.Message)
		assert.Nil(t, report.AlteredNodes)
	})

	t.Run("StaleVersion", func(t *testing.T) {
		g := simpleGraph()
		g["a1"].Data["text"] = "Changed"
		require.NoError(t, f.graphs.SaveDraft(ctx, id, g))

		stale := 0
		_, _, err := f.svc.Publish(ctx, id, flowgraph.PublishRequest{ExpectedVersion: &stale})
		assert.ErrorIs(t, err, domain.ErrVersionConflict)

		snap := f.publish(t, id)
		assert.Equal(t, 2, snap.Version)
	})
}

func TestService_PublishFailsValidation(t *testing.T) {
	b := dsl.New()
	b.Root().To("pay")
	b.Add("pay").Pay("Pay for it", "application.fee.payable")

	f := newFixture(t)
	id := f.insert(t, domain.Flow{ID: "flow", Data: b.MustBuild()})

	_, report, err := f.svc.Publish(context.Background(), id, flowgraph.PublishRequest{})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), validation.TitleFees)
	require.NotNil(t, report)
	assert.False(t, report.Passed())

	_, err = f.graphs.GetLatestPublished(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestService_PublishRejectsBrokenEdges(t *testing.T) {
	ctx := context.Background()
	g := simpleGraph()
	root := g[domain.RootID]
	root.Edges = append(root.Edges, "missing")
	g[domain.RootID] = root

	f := newFixture(t)
	id := f.insert(t, domain.Flow{ID: "flow", Data: g})

	_, err := f.svc.ValidateDraft(ctx, id)
	assert.ErrorIs(t, err, domain.ErrBrokenReference)

	_, _, err = f.svc.Publish(ctx, id, flowgraph.PublishRequest{PublisherID: "tester"})
	require.ErrorIs(t, err, domain.ErrBrokenReference)
	var broken *domain.BrokenReferenceError
	require.ErrorAs(t, err, &broken)
	assert.Equal(t, "missing", broken.Target)

	_, err = f.graphs.GetLatestPublished(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestService_PublishFlattensExternalPortals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	shared := dsl.New()
	shared.Root().To("s1")
	shared.Add("s1").Notice("Shared guidance")
	f.insert(t, domain.Flow{ID: "shared", Data: shared.MustBuild()})
	f.publish(t, "shared")

	host := dsl.New()
	host.Root().To("ext")
	host.Add("ext").External("shared")
	f.insert(t, domain.Flow{ID: "main", Data: host.MustBuild()})

	snap := f.publish(t, "main")
	assert.Equal(t, domain.TypeInternalPortal, snap.Data["ext"].Type)
	assert.Contains(t, snap.Data, "shared")
	assert.Contains(t, snap.Data, "s1")

	flat, err := f.svc.FlattenPublished(ctx, "main", true)
	require.NoError(t, err)
	assert.Contains(t, flat, "s1")
}

func TestService_FindAndReplace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.insert(t, domain.Flow{ID: "flow", Data: simpleGraph()})

	res, err := f.svc.FindAndReplace(ctx, id, "First", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Matches, "a1")

	draft, err := f.graphs.GetDraft(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "First", draft["a1"].Str("text"))

	repl := "Primary"
	_, err = f.svc.FindAndReplace(ctx, id, "First", &repl)
	require.NoError(t, err)

	draft, err = f.graphs.GetDraft(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Primary", draft["a1"].Str("text"))
}

func TestService_CopyFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.insert(t, domain.Flow{ID: "flow", Slug: "apply", TeamID: "team-1", Data: simpleGraph()})

	res, err := f.svc.CopyFlow(ctx, id, flowgraph.CopyRequest{Suffix: "copy1"})
	require.NoError(t, err)
	assert.Empty(t, res.FlowID)
	assert.NotContains(t, res.Data, "q1")

	res, err = f.svc.CopyFlow(ctx, id, flowgraph.CopyRequest{Suffix: "copy2", Insert: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.FlowID)

	copied, err := f.graphs.GetFlow(ctx, res.FlowID)
	require.NoError(t, err)
	assert.Equal(t, "apply-copy", copied.Slug)
	assert.Equal(t, "team-1", copied.TeamID)
	assert.Len(t, copied.Data, len(simpleGraph()))

	_, err = f.svc.CopyFlow(ctx, id, flowgraph.CopyRequest{})
	assert.ErrorIs(t, err, domain.ErrEmptySuffix)
}

func TestService_CopyPortalAsFlow(t *testing.T) {
	f := newFixture(t)
	id := f.insert(t, domain.Flow{ID: "flow", Data: simpleGraph()})

	g, err := f.svc.CopyPortalAsFlow(context.Background(), id, "portal", "new")
	require.NoError(t, err)
	assert.Len(t, g, 2)
	assert.Equal(t, []string{"c1new"}, g.EdgesOf(domain.RootID))

	_, err = f.svc.CopyPortalAsFlow(context.Background(), id, "q1", "new")
	assert.ErrorIs(t, err, domain.ErrInvalidPortalNode)
}

func TestService_ReconcileSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b := dsl.New()
	b.Root().To("q1", "q2")
	b.Add("q1").Question("Colour?", "colour").To("red", "blue")
	b.Add("red").Answer("Red", "red")
	b.Add("blue").Answer("Blue", "blue")
	b.Add("q2").Question("Size?", "size").To("big", "small")
	b.Add("big").Answer("Big", "big")
	b.Add("small").Answer("Small", "small")

	id := f.insert(t, domain.Flow{ID: "flow", Data: b.MustBuild()})
	v1 := f.publish(t, id)

	sess := domain.NewSession("s1", id, v1.Version)
	sess.Breadcrumbs["q1"] = domain.Breadcrumb{Answers: []string{"red"}}
	sess.Breadcrumbs["q2"] = domain.Breadcrumb{Answers: []string{"big"}}
	require.NoError(t, f.sessions.SaveSession(ctx, sess))

	t.Run("SameVersion", func(t *testing.T) {
		res, err := f.svc.ReconcileSession(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Len(t, res.Breadcrumbs, 2)
	})

	t.Run("Republished", func(t *testing.T) {
		b.Add("red").Set("text", "Crimson")
		require.NoError(t, f.graphs.SaveDraft(ctx, id, b.MustBuild()))
		v2 := f.publish(t, id)

		res, err := f.svc.ReconcileSession(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, []string{"q1"}, res.RemovedIDs)
		assert.Equal(t, v1.Version, res.FromVersion)
		assert.Equal(t, v2.Version, res.ToVersion)

		stored, err := f.sessions.GetSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, v2.Version, stored.FlowVersion)
		assert.NotContains(t, stored.Breadcrumbs, "q1")
		assert.Contains(t, stored.Breadcrumbs, "q2")
	})

	t.Run("MissingSession", func(t *testing.T) {
		_, err := f.svc.ReconcileSession(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestService_SyncTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tpl := dsl.New()
	tpl.Root().To("n1", "n2")
	tpl.Add("n1").Notice("Original").Templated("Describe your local rules")
	tpl.Add("n2").Notice("Unchanged")
	f.insert(t, domain.Flow{ID: "tpl", Data: tpl.MustBuild()})
	f.publish(t, "tpl")

	f.insert(t, domain.Flow{ID: "dep", TemplatedFrom: "tpl", Data: dsl.New().MustBuild()})
	require.NoError(t, f.edits.SaveEdits(ctx, "dep", domain.TemplatedFlowEdits{
		"n1":   {"title": "Customised"},
		"gone": {"title": "Orphan"},
	}))

	merged, err := f.svc.SyncTemplate(ctx, "dep")
	require.NoError(t, err)
	assert.Equal(t, "Customised", merged["n1"].Str("title"))
	assert.Equal(t, "Unchanged", merged["n2"].Str("title"))
	assert.NotContains(t, merged, "gone")

	draft, err := f.graphs.GetDraft(ctx, "dep")
	require.NoError(t, err)
	assert.Equal(t, "Customised", draft["n1"].Str("title"))

	report, err := f.svc.ValidateDraft(ctx, "dep")
	require.NoError(t, err)
	check, ok := validation.Report{Checks: report.Checks}.Get(validation.TitleTemplatedNodes)
	require.True(t, ok)
	assert.Equal(t, validation.StatusPass, check.Status)

	_, err = f.svc.SyncTemplate(ctx, "tpl")
	assert.ErrorIs(t, err, domain.ErrNotTemplated)
}
