package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"gopkg.in/yaml.v3"

	loamstore "github.com/aretw0/flowgraph/pkg/adapters/loam"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/flatten"
)

// LoadGraph reads a graph document. A directory is read as one node
// document per file through Loam; a file is a JSON or YAML node map.
func LoadGraph(ctx context.Context, path string) (domain.Graph, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	if info.IsDir() {
		return loadGraphDir(ctx, path)
	}

	var g domain.Graph
	if err := decodeFile(path, &g); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrMissingRoot)
	}
	// YAML documents do not run Graph.UnmarshalJSON; Clone fills ids from keys.
	return g.Clone(), nil
}

func loadGraphDir(ctx context.Context, dir string) (domain.Graph, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(abs,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	loader := loamstore.New(loam.NewTypedRepository[loamstore.NodeMetadata](repo))
	return loader.LoadGraph(ctx)
}

// LoadBreadcrumbs reads a breadcrumbs document, or the breadcrumbs of a
// session document when the file holds a whole session.
func LoadBreadcrumbs(path string) (domain.Breadcrumbs, error) {
	var raw map[string]any
	if err := decodeFile(path, &raw); err != nil {
		return nil, err
	}
	if _, ok := raw["breadcrumbs"]; ok {
		var s domain.Session
		if err := decodeFile(path, &s); err != nil {
			return nil, err
		}
		return s.Breadcrumbs, nil
	}
	var crumbs domain.Breadcrumbs
	if err := decodeFile(path, &crumbs); err != nil {
		return nil, err
	}
	return crumbs, nil
}

// LoadEdits reads a templated flow edits document.
func LoadEdits(path string) (domain.TemplatedFlowEdits, error) {
	var edits domain.TemplatedFlowEdits
	if err := decodeFile(path, &edits); err != nil {
		return nil, err
	}
	return edits, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	default:
		err = json.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// DirResolver resolves external portals against a directory holding one
// published graph per flow, named <flowId>.json (or .yaml).
func DirResolver(dir string) flatten.Resolver {
	return flatten.ResolverFunc(func(ctx context.Context, flowID string) (domain.Graph, error) {
		if dir == "" {
			return nil, fmt.Errorf("flow %s: %w", flowID, flatten.ErrNoResolver)
		}
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			path := filepath.Join(dir, flowID+ext)
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				return nil, err
			}
			return LoadGraph(ctx, path)
		}
		return nil, fmt.Errorf("flow %s: %w", flowID, domain.ErrSnapshotNotFound)
	})
}
