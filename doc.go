/*
Package flowgraph is the graph engine behind a form builder for government service flows.

A flow is a directed graph of typed nodes (questions, answers, sections, portals, payments,
...) that editors draft, validate and publish. Applicants then walk a published version of the
flow and leave breadcrumbs behind. flowgraph implements the structural operations on those
graphs and keeps sessions consistent when flows are republished.

# Concept

The Engine is pure: every operation takes graphs and returns graphs or reports, with no I/O
and no shared mutable state. The Service wires an Engine to storage ports (flows, snapshots,
sessions, template edits) and implements the editor and applicant workflows on top of it.
This Hexagonal Architecture allows flowgraph to be embedded in any interface: CLI, HTTP
Server, or AI Agent infrastructure.

# Key Features

  - Diff: structural comparison of two graph versions.
  - Publish checks: an ordered registry of rules a flattened flow must pass.
  - Find and replace: sanitised text replacement across every node.
  - Copy: duplicate a flow, or the sub-flow of a portal, under fresh ids.
  - Flatten: inline the published flows referenced by external portals.
  - Reconcile: drop the breadcrumbs a republish invalidated, and rebuild templated flows.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/flowgraph"
		"github.com/aretw0/flowgraph/pkg/adapters/memory"
	)

	func main() {
		ctx := context.Background()

		graphs := memory.NewGraphStore()
		svc := flowgraph.NewService(flowgraph.New(), graphs, memory.NewStore(), memory.NewEditsStore())

		report, err := svc.ValidateDraft(ctx, "flow-id")
		if err != nil {
			log.Fatal(err)
		}
		log.Println(report.Message)

		snap, _, err := svc.Publish(ctx, "flow-id", flowgraph.PublishRequest{PublisherID: "editor"})
		if err != nil {
			log.Fatal(err)
		}
		log.Println("published version", snap.Version)
	}

For CLI usage, see the cmd/flowgraph directory.
*/
package flowgraph
