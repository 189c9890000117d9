package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowgraph/internal/config"
	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/internal/testutils"
	redisstore "github.com/aretw0/flowgraph/pkg/adapters/redis"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/dsl"
	"github.com/aretw0/flowgraph/pkg/flatten"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	testutils.WriteFiles(t, dir, map[string]string{name: content})
	return filepath.Join(dir, name)
}

func testKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), 32))
}

func TestOpenBackends_Memory(t *testing.T) {
	ctx := context.Background()
	b, err := OpenBackends(ctx, config.Default(), logging.NewNop())
	require.NoError(t, err)
	defer b.Close()

	assert.NotNil(t, b.Graphs)
	assert.NotNil(t, b.Edits)
	assert.NotNil(t, b.Sessions)
	assert.Nil(t, b.Locker)
}

func TestOpenBackends_Loam(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Driver = config.DriverLoam
	cfg.Store.LoamDir = filepath.Join(dir, "store")
	cfg.Store.SessionDir = filepath.Join(dir, "sessions")

	b, err := OpenBackends(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer b.Close()

	id, err := b.Graphs.InsertFlow(ctx, domain.Flow{Slug: "apply", Data: dsl.New().Graph()})
	require.NoError(t, err)
	flow, err := b.Graphs.GetFlow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "apply", flow.Slug)

	require.NoError(t, b.Sessions.SaveSession(ctx, &domain.Session{ID: "s1", FlowID: id}))
	_, err = os.Stat(filepath.Join(cfg.Store.SessionDir, "s1.json"))
	assert.NoError(t, err)
}

func TestOpenBackends_RedisSessions(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Store.RedisURL = "redis://" + mr.Addr()
	cfg.Store.KeyPrefix = "test:"

	b, err := OpenBackends(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &redisstore.Store{}, b.Sessions)
	assert.IsType(t, &redisstore.Locker{}, b.Locker)

	require.NoError(t, b.Sessions.SaveSession(ctx, &domain.Session{ID: "s1", FlowID: "f1"}))
	assert.True(t, mr.Exists("test:s1"))
}

func TestOpenBackends_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Store.RedisURL = "redis://" + addr
	_, err := OpenBackends(context.Background(), cfg, logging.NewNop())
	assert.ErrorContains(t, err, "ping redis")
}

func TestOpenBackends_Encryption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Store.Driver = config.DriverLoam
	cfg.Store.LoamDir = filepath.Join(dir, "store")
	cfg.Store.SessionDir = filepath.Join(dir, "sessions")
	cfg.Encryption.Key = testKey()

	b, err := OpenBackends(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer b.Close()

	s := &domain.Session{
		ID:          "s1",
		Passport:    domain.Passport{Data: map[string]any{"applicant.email": "jo@example.com"}},
		Breadcrumbs: domain.Breadcrumbs{"q1": {Answers: []string{"a1"}}},
	}
	require.NoError(t, b.Sessions.SaveSession(ctx, s))

	raw, err := os.ReadFile(filepath.Join(cfg.Store.SessionDir, "s1.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "jo@example.com")

	got, err := b.Sessions.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", got.Passport.Data["applicant.email"])
	assert.Equal(t, []string{"a1"}, got.Breadcrumbs["q1"].Answers)
}

func TestOpenBackends_InvalidKey(t *testing.T) {
	tests := map[string]string{
		"not base64": "%%%",
		"too short":  base64.StdEncoding.EncodeToString([]byte("short")),
	}
	for name, key := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Encryption.Key = key
			_, err := OpenBackends(context.Background(), cfg, logging.NewNop())
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestOpenBackends_PIIMasking(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Privacy.MaskPatterns = []string{`email$`}

	b, err := OpenBackends(ctx, cfg, logging.NewNop())
	require.NoError(t, err)

	require.NoError(t, b.Sessions.SaveSession(ctx, &domain.Session{
		ID:       "s1",
		Passport: domain.Passport{Data: map[string]any{"applicant.email": "jo@example.com"}},
	}))
	got, err := b.Sessions.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "***", got.Passport.Data["applicant.email"])
}

func TestNewService_ListSessions(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	logger := logging.NewNop()
	reg := prometheus.NewRegistry()

	svc, b, err := NewService(ctx, cfg, NewEngine(cfg, logger, reg), logger)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, svc.Sessions().Save(ctx, &domain.Session{ID: "b", FlowID: "f1", FlowVersion: 2}))
	require.NoError(t, svc.Sessions().Save(ctx, &domain.Session{
		ID:          "a",
		FlowID:      "f1",
		Breadcrumbs: domain.Breadcrumbs{"q1": {}},
	}))

	rows, err := ListSessions(ctx, svc.Sessions())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, 1, rows[0].Breadcrumbs)
	assert.Equal(t, 2, rows[1].FlowVersion)

	var buf bytes.Buffer
	require.NoError(t, PrintSessions(&buf, rows))
	assert.Contains(t, buf.String(), "SESSION")
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

	buf.Reset()
	require.NoError(t, PrintSessions(&buf, nil))
	assert.Contains(t, buf.String(), "No active sessions")
}

func TestNewEngine_Metrics(t *testing.T) {
	cfg := config.Default()
	reg := prometheus.NewRegistry()
	engine := NewEngine(cfg, logging.NewNop(), reg)

	engine.Diff(context.Background(), "f1", nil, dsl.New().Graph())

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	cfg.Metrics.Enabled = false
	reg = prometheus.NewRegistry()
	NewEngine(cfg, logging.NewNop(), reg).Diff(context.Background(), "f1", nil, dsl.New().Graph())
	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestLoadGraph_Formats(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	jsonPath := write(t, dir, "flow.json", `{"_root": {"edges": ["q1"]}, "q1": {"type": 100, "data": {"text": "Why?"}}}`)
	g, err := LoadGraph(ctx, jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "q1", g["q1"].ID)
	assert.Equal(t, domain.TypeQuestion, g["q1"].Type)

	yamlPath := write(t, dir, "flow.yaml", `
_root:
  edges: [n1]
n1:
  type: 8
  data:
    title: Heads up
`)
	g, err = LoadGraph(ctx, yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "n1", g["n1"].ID)
	assert.Equal(t, "Heads up", g["n1"].Str("title"))

	_, err = LoadGraph(ctx, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	nullPath := write(t, dir, "null.json", `null`)
	_, err = LoadGraph(ctx, nullPath)
	assert.ErrorIs(t, err, domain.ErrMissingRoot)
}

func TestLoadGraph_Directory(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "root.md", "---\nid: _root\nedges: [intro]\n---")
	write(t, dir, "intro.md", "---\ntype: Content\n---\nWelcome.")

	g, err := LoadGraph(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro"}, g.EdgesOf(domain.RootID))
	assert.Equal(t, domain.TypeContent, g["intro"].Type)
}

func TestLoadBreadcrumbs(t *testing.T) {
	dir := t.TempDir()

	plain := write(t, dir, "crumbs.json", `{"q1": {"auto": false, "answers": ["a1"]}}`)
	crumbs, err := LoadBreadcrumbs(plain)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, crumbs["q1"].Answers)

	session := write(t, dir, "session.json", `{"id": "s1", "flowId": "f1", "breadcrumbs": {"q2": {"auto": true}}}`)
	crumbs, err = LoadBreadcrumbs(session)
	require.NoError(t, err)
	assert.True(t, crumbs["q2"].Auto)
	assert.Len(t, crumbs, 1)
}

func TestDirResolver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	write(t, dir, "fees.json", `{"_root": {"edges": ["n1"]}, "n1": {"type": 8, "data": {"title": "Fees"}}}`)

	g, err := DirResolver(dir).PublishedGraph(ctx, "fees")
	require.NoError(t, err)
	assert.Contains(t, g, "n1")

	_, err = DirResolver(dir).PublishedGraph(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	_, err = DirResolver("").PublishedGraph(ctx, "fees")
	assert.ErrorIs(t, err, flatten.ErrNoResolver)
}

func TestEmit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, OutputJSON, map[string]int{"n": 1}, "# ignored"))
	assert.JSONEq(t, `{"n": 1}`, buf.String())

	buf.Reset()
	require.NoError(t, Emit(&buf, OutputMarkdown, nil, "# Title\n"))
	assert.Equal(t, "# Title\n", buf.String())

	buf.Reset()
	require.NoError(t, Emit(&buf, OutputText, nil, "plain\n"))
	assert.Equal(t, "plain\n", buf.String(), "non-terminals get the raw markdown")
}

func TestParseOutput(t *testing.T) {
	for _, s := range []string{"text", "json", "markdown"} {
		o, err := ParseOutput(s)
		require.NoError(t, err)
		assert.Equal(t, Output(s), o)
	}
	_, err := ParseOutput("xml")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	assert.False(t, NewLogger(cfg, false, true).Enabled(context.Background(), -4), "quiet discards debug")
	assert.True(t, NewLogger(cfg, true, false).Enabled(context.Background(), -4))
	assert.False(t, NewLogger(cfg, false, false).Enabled(context.Background(), -4))
}
