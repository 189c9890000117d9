/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing flow graphs.

It allows developers to define flows using a fluent builder pattern instead of
hand-writing node maps or JSON documents. This is particularly useful for
fixtures in unit tests and for generating flows from other sources.

Example usage:

	package main

	import (
		"github.com/aretw0/flowgraph/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		b.Root().To("intro", "q1")

		b.Add("intro").Section("About the project")

		b.Add("q1").
			Question("Is it a listed building?", "property.listed").
			To("yes", "no")

		b.Add("yes").Answer("Yes", "true")
		b.Add("no").Answer("No", "false")

		graph, err := b.Build()
		// ... pass graph to the engine
	}
*/
package dsl
