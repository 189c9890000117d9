// Package tests holds reusable contract suites for the store ports.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/flowgraph/pkg/diff"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractGraph(title string) domain.Graph {
	return domain.Graph{
		domain.RootID: {Edges: []string{"q"}},
		"q": {
			Type:  domain.TypeQuestion,
			Data:  map[string]any{"text": title, "fn": "property.type", "nested": map[string]any{"n": 1}},
			Edges: []string{"a"},
		},
		"a": {Type: domain.TypeAnswer, Data: map[string]any{"text": "House", "val": "house"}},
	}
}

// GraphStoreContractTest verifies that an adapter complies with ports.GraphStore.
func GraphStoreContractTest(t *testing.T, store ports.GraphStore) {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000")

	flowID, err := store.InsertFlow(ctx, domain.Flow{
		TeamID: "team-1",
		Slug:   "contract-" + suffix,
		Data:   contractGraph("First"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, flowID)

	t.Run("GetFlow", func(t *testing.T) {
		flow, err := store.GetFlow(ctx, flowID)
		require.NoError(t, err)
		assert.Equal(t, flowID, flow.ID)
		assert.Equal(t, "team-1", flow.TeamID)
		assert.Nil(t, diff.Compute(contractGraph("First"), flow.Data))
	})

	t.Run("GetFlow_NotFound", func(t *testing.T) {
		_, err := store.GetFlow(ctx, "missing-"+suffix)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)

		_, err = store.GetDraft(ctx, "missing-"+suffix)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)

		err = store.SaveDraft(ctx, "missing-"+suffix, contractGraph("x"))
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)
	})

	t.Run("SaveDraft", func(t *testing.T) {
		before, err := store.GetFlow(ctx, flowID)
		require.NoError(t, err)

		require.NoError(t, store.SaveDraft(ctx, flowID, contractGraph("Second")))

		draft, err := store.GetDraft(ctx, flowID)
		require.NoError(t, err)
		assert.Equal(t, "Second", draft["q"].Data["text"])
		assert.Equal(t, "q", draft["q"].ID)

		after, err := store.GetFlow(ctx, flowID)
		require.NoError(t, err)
		assert.Greater(t, after.Version, before.Version)
	})

	t.Run("DraftIsolation", func(t *testing.T) {
		draft, err := store.GetDraft(ctx, flowID)
		require.NoError(t, err)
		draft["q"].Data["text"] = "mutated locally"

		again, err := store.GetDraft(ctx, flowID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated locally", again["q"].Data["text"])
	})

	t.Run("NeverPublished", func(t *testing.T) {
		_, err := store.GetLatestPublished(ctx, flowID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

		_, err = store.GetPublishedByID(ctx, flowID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Publish", func(t *testing.T) {
		first, err := store.Publish(ctx, flowID, contractGraph("Published one"), "user-1", "initial", 0)
		require.NoError(t, err)
		assert.Equal(t, 1, first.Version)
		assert.Equal(t, flowID, first.FlowID)
		assert.Equal(t, "user-1", first.PublisherID)

		second, err := store.Publish(ctx, flowID, contractGraph("Published two"), "user-2", "", first.Version)
		require.NoError(t, err)
		assert.Equal(t, 2, second.Version)

		latest, err := store.GetLatestPublished(ctx, flowID)
		require.NoError(t, err)
		assert.Equal(t, 2, latest.Version)
		assert.Equal(t, "Published two", latest.Data["q"].Data["text"])

		byID, err := store.GetPublishedByID(ctx, flowID)
		require.NoError(t, err)
		assert.Equal(t, latest.Version, byID.Version)

		old, err := store.GetSnapshot(ctx, flowID, 1)
		require.NoError(t, err)
		assert.Equal(t, "Published one", old.Data["q"].Data["text"])

		_, err = store.GetSnapshot(ctx, flowID, 99)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Publish_VersionConflict", func(t *testing.T) {
		_, err := store.Publish(ctx, flowID, contractGraph("Stale"), "user-3", "", 1)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)

		latest, err := store.GetLatestPublished(ctx, flowID)
		require.NoError(t, err)
		assert.Equal(t, 2, latest.Version)

		forced, err := store.Publish(ctx, flowID, contractGraph("Forced"), "user-3", "", domain.AnyVersion)
		require.NoError(t, err)
		assert.Equal(t, 3, forced.Version)
	})

	t.Run("InsertFlow_Templated", func(t *testing.T) {
		id, err := store.InsertFlow(ctx, domain.Flow{
			TeamID:        "team-2",
			Slug:          "dependent-" + suffix,
			TemplatedFrom: flowID,
			Data:          contractGraph("Dependent"),
		})
		require.NoError(t, err)

		flow, err := store.GetFlow(ctx, id)
		require.NoError(t, err)
		assert.True(t, flow.IsTemplated())
		assert.Equal(t, flowID, flow.TemplatedFrom)
	})
}

// SessionStoreContractTest verifies that an adapter complies with ports.SessionStore.
func SessionStoreContractTest(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405.000000")

	t.Run("Save and Get", func(t *testing.T) {
		s := domain.NewSession(sessionID, "flow-1", 2)
		s.Passport.Data["property.type"] = []any{"house"}
		s.Breadcrumbs["q"] = domain.Breadcrumb{Answers: []string{"a"}}
		s.Breadcrumbs["auto"] = domain.Breadcrumb{Auto: true, Data: map[string]any{"x": "y"}}

		require.NoError(t, store.SaveSession(ctx, s))

		loaded, err := store.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "flow-1", loaded.FlowID)
		assert.Equal(t, 2, loaded.FlowVersion)
		assert.Equal(t, []string{"a"}, loaded.Breadcrumbs["q"].Answers)
		assert.True(t, loaded.Breadcrumbs["auto"].Auto)
		assert.Equal(t, "y", loaded.Breadcrumbs["auto"].Data["x"])
		assert.NotNil(t, loaded.Passport.Data["property.type"])
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetSession(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("UpdateBreadcrumbs", func(t *testing.T) {
		err := store.UpdateBreadcrumbs(ctx, sessionID, domain.Breadcrumbs{"other": {Answers: []string{"b"}}}, 3)
		require.NoError(t, err)

		loaded, err := store.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.FlowVersion)
		assert.NotContains(t, loaded.Breadcrumbs, "q")
		assert.Equal(t, []string{"b"}, loaded.Breadcrumbs["other"].Answers)
		assert.Equal(t, "flow-1", loaded.FlowID)

		err = store.UpdateBreadcrumbs(ctx, "non-existent-"+sessionID, nil, 1)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id2 := sessionID + "-2"
		require.NoError(t, store.SaveSession(ctx, domain.NewSession(id2, "flow-1", 1)))
		defer func() {
			_ = store.DeleteSession(ctx, id2)
		}()

		sessions, err := store.ListSessions(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, sessionID)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.DeleteSession(ctx, sessionID))

		_, err := store.GetSession(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Delete should return ErrSessionNotFound")
	})
}

// TemplateEditsStoreContractTest verifies that an adapter complies with ports.TemplateEditsStore.
func TemplateEditsStoreContractTest(t *testing.T, store ports.TemplateEditsStore) {
	t.Helper()
	ctx := context.Background()
	flowID := "contract-dependent-" + time.Now().Format("20060102150405.000000")

	t.Run("None", func(t *testing.T) {
		edits, err := store.GetEdits(ctx, flowID)
		require.NoError(t, err)
		assert.Nil(t, edits)
	})

	t.Run("Save and Get", func(t *testing.T) {
		edits := domain.TemplatedFlowEdits{
			"notice": {"title": "Custom", "color": map[string]any{"background": "#eee"}},
		}
		require.NoError(t, store.SaveEdits(ctx, flowID, edits))

		loaded, err := store.GetEdits(ctx, flowID)
		require.NoError(t, err)
		assert.Equal(t, "Custom", loaded["notice"]["title"])
		assert.Equal(t, "#eee", loaded["notice"]["color"].(map[string]any)["background"])
	})

	t.Run("Replace", func(t *testing.T) {
		require.NoError(t, store.SaveEdits(ctx, flowID, domain.TemplatedFlowEdits{"q": {"text": "Mine"}}))

		loaded, err := store.GetEdits(ctx, flowID)
		require.NoError(t, err)
		assert.NotContains(t, loaded, "notice")
		assert.Equal(t, "Mine", loaded["q"]["text"])
	})
}
