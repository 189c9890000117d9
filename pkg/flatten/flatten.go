// Package flatten resolves external portal references into one combined graph.
package flatten

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// ErrNoResolver is returned when a graph references other flows but no
// resolver was given.
var ErrNoResolver = errors.New("no published graph resolver")

// FlattenedKey marks portals the flattener synthesised from an external reference.
const FlattenedKey = "flattenedFromExternalPortal"

// Resolver fetches the published graph of another flow.
type Resolver interface {
	PublishedGraph(ctx context.Context, flowID string) (domain.Graph, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, flowID string) (domain.Graph, error)

// PublishedGraph calls f.
func (f ResolverFunc) PublishedGraph(ctx context.Context, flowID string) (domain.Graph, error) {
	return f(ctx, flowID)
}

// Flatten returns graph with every ExternalPortal replaced by an
// InternalPortal whose single edge is the referenced flow id. The referenced
// flow's root is added under that id, marked with FlattenedKey, and all its
// nodes are merged in, recursively. Every referenced flow is resolved and
// merged once.
//
// flowID is the id of graph itself and starts the reference chain. A chain
// that revisits a flow fails with *domain.CyclicPortalReferenceError. A
// merged node whose id is already taken by different content fails with
// *domain.NodeCollisionError. graph is never mutated.
func Flatten(ctx context.Context, flowID string, graph domain.Graph, r Resolver) (domain.Graph, error) {
	f := &flattener{
		resolver: r,
		out:      graph.Clone(),
		merged:   make(map[string]bool),
	}
	for _, portal := range graph.NodesOfType(domain.TypeExternalPortal) {
		target, err := targetOf(portal)
		if err != nil {
			return nil, err
		}
		f.out[portal.ID] = convert(portal, target)
	}
	if err := f.expand(ctx, graph, []string{flowID}); err != nil {
		return nil, err
	}
	return f.out, nil
}

type flattener struct {
	resolver Resolver
	out      domain.Graph
	merged   map[string]bool
}

// expand pulls in the flows referenced by the external portals of g. The
// portals themselves are already converted in out.
func (f *flattener) expand(ctx context.Context, g domain.Graph, chain []string) error {
	for _, portal := range g.NodesOfType(domain.TypeExternalPortal) {
		target, err := targetOf(portal)
		if err != nil {
			return err
		}

		if slices.Contains(chain, target) {
			return &domain.CyclicPortalReferenceError{Chain: append(slices.Clone(chain), target)}
		}
		if f.merged[target] {
			continue
		}
		f.merged[target] = true

		if err := ctx.Err(); err != nil {
			return err
		}
		if f.resolver == nil {
			return fmt.Errorf("%w: no resolver for flow %q", ErrNoResolver, target)
		}
		ref, err := f.resolver.PublishedGraph(ctx, target)
		if err != nil {
			return fmt.Errorf("failed to resolve flow %q: %w", target, err)
		}
		root, ok := ref.Root()
		if !ok {
			return fmt.Errorf("flow %q: %w", target, domain.ErrMissingRoot)
		}

		entry := domain.Node{
			ID:    target,
			Type:  domain.TypeInternalPortal,
			Data:  map[string]any{"text": target, FlattenedKey: true},
			Edges: slices.Clone(root.Edges),
		}
		if err := f.merge(target, entry); err != nil {
			return err
		}
		for _, id := range ref.IDs() {
			if id == domain.RootID {
				continue
			}
			n := ref[id].Clone()
			n.ID = id
			if n.Type == domain.TypeExternalPortal {
				next, err := targetOf(n)
				if err != nil {
					return err
				}
				n = convert(n, next)
			}
			if err := f.merge(target, n); err != nil {
				return err
			}
		}

		if err := f.expand(ctx, ref, append(slices.Clone(chain), target)); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) merge(flowID string, n domain.Node) error {
	if existing, ok := f.out[n.ID]; ok {
		if !existing.Equal(n) {
			return &domain.NodeCollisionError{NodeID: n.ID, FlowID: flowID}
		}
		return nil
	}
	f.out[n.ID] = n
	return nil
}

func targetOf(portal domain.Node) (string, error) {
	var data domain.ExternalPortalData
	if err := portal.Decode(&data); err != nil {
		return "", err
	}
	if data.FlowID == "" {
		return "", fmt.Errorf("%w: external portal %q has no flowId", domain.ErrInvalidPortalNode, portal.ID)
	}
	return data.FlowID, nil
}

// convert turns an external reference into the internal portal pointing at
// the merged flow.
func convert(portal domain.Node, target string) domain.Node {
	text := portal.Str("text")
	if text == "" {
		text = target
	}
	return domain.Node{
		ID:    portal.ID,
		Type:  domain.TypeInternalPortal,
		Data:  map[string]any{"text": text, "flowId": target},
		Edges: []string{target},
	}
}
