package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Engine conditions. All of them describe a defect of the input graph, not a
// transient fault: callers must not retry.
var (
	// ErrBrokenReference is returned when an edge targets a missing node.
	ErrBrokenReference = errors.New("broken reference")

	// ErrMissingRoot is returned when a graph has no root node.
	ErrMissingRoot = errors.New("graph has no " + RootID + " node")

	// ErrUnknownNodeType is returned for integer type tags outside the closed set.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrInvalidPortalNode is returned when a portal copy targets a node that
	// is not an InternalPortal.
	ErrInvalidPortalNode = errors.New("invalid portal node")

	// ErrCyclicPortalReference is returned when flattening revisits a flow
	// already being resolved.
	ErrCyclicPortalReference = errors.New("cyclic portal reference")

	// ErrNodeCollision is returned when two flows merged by the flattener
	// define the same node id with different content.
	ErrNodeCollision = errors.New("node id collision")

	// ErrIdentifierCollision is returned when id rewriting cannot produce
	// unique ids for a copy.
	ErrIdentifierCollision = errors.New("identifier collision")

	// ErrUnsanitisableReplacement is returned when a rich text replacement
	// cannot be made safe.
	ErrUnsanitisableReplacement = errors.New("unsanitisable replacement")

	// ErrEmptySearch is returned when find/replace is called without a search string.
	ErrEmptySearch = errors.New("search string must not be empty")

	// ErrEmptySuffix is returned when a copy is requested without a suffix.
	ErrEmptySuffix = errors.New("replacement suffix must not be empty")
)

// Persistence and workflow conditions, returned by stores and the service.
var (
	// ErrFlowNotFound is returned when a flow id cannot be found in the store.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrSnapshotNotFound is returned when a flow has no matching published version.
	ErrSnapshotNotFound = errors.New("published flow not found")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrVersionConflict is returned when a publish races another publish.
	ErrVersionConflict = errors.New("flow version conflict")

	// ErrValidationFailed is returned when publishing a flow whose checks fail.
	ErrValidationFailed = errors.New("flow validation failed")

	// ErrNothingToPublish is returned when the draft equals the latest snapshot.
	ErrNothingToPublish = errors.New("no new changes to publish")

	// ErrNotTemplated is returned when syncing a flow that has no source template.
	ErrNotTemplated = errors.New("flow is not templated")
)

// BrokenReferenceError identifies the offending edge.
type BrokenReferenceError struct {
	Parent string
	Target string
}

func (e *BrokenReferenceError) Error() string {
	return fmt.Sprintf("%s: node %q has edge to missing node %q", ErrBrokenReference, e.Parent, e.Target)
}

func (e *BrokenReferenceError) Unwrap() error { return ErrBrokenReference }

// CyclicPortalReferenceError carries the chain of flow ids that loops.
type CyclicPortalReferenceError struct {
	Chain []string
}

func (e *CyclicPortalReferenceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicPortalReference, strings.Join(e.Chain, " -> "))
}

func (e *CyclicPortalReferenceError) Unwrap() error { return ErrCyclicPortalReference }

// NodeCollisionError identifies a node id defined differently by two flows.
type NodeCollisionError struct {
	NodeID string
	FlowID string
}

func (e *NodeCollisionError) Error() string {
	return fmt.Sprintf("%s: node %q from flow %q already exists with different content", ErrNodeCollision, e.NodeID, e.FlowID)
}

func (e *NodeCollisionError) Unwrap() error { return ErrNodeCollision }

// IdentifierCollisionError identifies the ids that rewrite to the same key.
type IdentifierCollisionError struct {
	Original  string
	Other     string
	Rewritten string
}

func (e *IdentifierCollisionError) Error() string {
	return fmt.Sprintf("%s: %q and %q both become %q", ErrIdentifierCollision, e.Original, e.Other, e.Rewritten)
}

func (e *IdentifierCollisionError) Unwrap() error { return ErrIdentifierCollision }
