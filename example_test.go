package flowgraph_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/pkg/adapters/memory"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/dsl"
)

// ExampleEngine_Diff compares two versions of a flow.
func ExampleEngine_Diff() {
	v1 := dsl.New()
	v1.Root().To("q1")
	v1.Add("q1").Question("Do you live here?", "resident").To("a1", "a2")
	v1.Add("a1").Answer("Yes", "true")
	v1.Add("a2").Answer("No", "false")

	v2 := dsl.New()
	v2.Root().To("q1")
	v2.Add("q1").Question("Do you live here?", "resident").To("a1")
	v2.Add("a1").Answer("Yes, I do", "true")

	engine := flowgraph.New()
	changes := engine.Diff(context.Background(), "flow", v1.MustBuild(), v2.MustBuild())

	for _, id := range changes.IDs() {
		fmt.Println(id, "removed:", changes[id].Removed)
	}
	// Output:
	// a1 removed: false
	// a2 removed: true
	// q1 removed: false
}

// ExampleService_Publish drafts, validates and publishes a flow held in memory.
func ExampleService_Publish() {
	ctx := context.Background()

	b := dsl.New()
	b.Root().To("intro")
	b.Add("intro").Notice("Welcome")

	graphs := memory.NewGraphStore()
	id, err := graphs.InsertFlow(ctx, domain.Flow{ID: "example", Slug: "example", Data: b.MustBuild()})
	if err != nil {
		log.Fatal(err)
	}

	svc := flowgraph.NewService(flowgraph.New(), graphs, memory.NewStore(), memory.NewEditsStore())

	report, err := svc.ValidateDraft(ctx, id)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(report.Message)

	snap, _, err := svc.Publish(ctx, id, flowgraph.PublishRequest{PublisherID: "editor"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("version", snap.Version)

	report, _ = svc.ValidateDraft(ctx, id)
	fmt.Println(report.Message)
	// Output:
	// Changes queued to publish
	// version 1
	// No new changes to publish
}
