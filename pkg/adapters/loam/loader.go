package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Loader assembles a flow graph from a directory of node documents, one
// Markdown/YAML/JSON file per node. The document named "_root" lists the
// top-level edges.
type Loader struct {
	Repo *loam.TypedRepository[NodeMetadata]
}

// New creates a new Loam loader.
func New(repo *loam.TypedRepository[NodeMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// LoadGraph reads every node document and returns the graph.
// Two documents resolving to the same id are rejected.
func (l *Loader) LoadGraph(ctx context.Context) (domain.Graph, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	graph := make(domain.Graph, len(docs))

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID

		node, err := buildNode(id, doc.Data, doc.Content)
		if err != nil {
			return nil, err
		}
		graph[id] = node
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}

func buildNode(id string, meta NodeMetadata, content string) (domain.Node, error) {
	node := domain.Node{
		ID:    id,
		Data:  normalizeData(meta.Data),
		Edges: trimAll(meta.Edges),
	}
	if id == domain.RootID {
		node.Data = nil
		return node, nil
	}

	t, err := parseType(meta.Type)
	if err != nil {
		return domain.Node{}, fmt.Errorf("node %s: %w", id, err)
	}
	node.Type = t

	body := strings.TrimSpace(content)
	if body != "" {
		key := "description"
		if t == domain.TypeContent {
			key = "content"
		}
		if node.Data == nil {
			node.Data = make(map[string]any)
		}
		if _, set := node.Data[key]; !set {
			node.Data[key] = body
		}
	}
	return node, nil
}

func parseType(raw any) (domain.NodeType, error) {
	var t domain.NodeType
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing type", domain.ErrUnknownNodeType)
	case string:
		if parsed, ok := domain.ParseNodeType(v); ok {
			return parsed, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", domain.ErrUnknownNodeType, v)
		}
		t = domain.NodeType(n)
	case int:
		t = domain.NodeType(v)
	case int64:
		t = domain.NodeType(v)
	case uint64:
		t = domain.NodeType(v)
	case float64:
		t = domain.NodeType(int(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s", domain.ErrUnknownNodeType, v)
		}
		t = domain.NodeType(n)
	default:
		return 0, fmt.Errorf("%w: %v", domain.ErrUnknownNodeType, raw)
	}
	if !t.Known() {
		return 0, fmt.Errorf("%w: %d", domain.ErrUnknownNodeType, int(t))
	}
	return t, nil
}

// normalizeData converts YAML-decoded maps into the JSON value model.
func normalizeData(v map[string]any) map[string]any {
	if v == nil {
		return nil
	}
	out := make(map[string]any, len(v))
	for k, item := range v {
		out[k] = normalizeValue(item)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeData(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return val
	}
}

func trimAll(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = trimExtension(strings.TrimSpace(id))
	}
	return out
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch emits the id of every changed node document until ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
