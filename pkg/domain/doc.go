/*
Package domain contains the core data model of the flowgraph engine.

A flow is a directed graph of typed nodes keyed by opaque string ids. The
distinguished root node lives under the reserved key "_root" and its edges
enumerate the top-level sequence of the flow. Edge order is significant: it
is the display and traversal order.

This package is kept pure and free of I/O, following Hexagonal Architecture
principles. Storage, transport and presentation live in adapters.

# Key Entities

  - Node: a single typed unit (Question, Answer, Section, portals, ...).
  - Graph: the node map of one flow, with lookup, traversal and integrity checks.
  - Flow / Snapshot: an editable draft and its immutable published versions.
  - Session / Breadcrumb: a user's recorded path through a published flow.
  - TemplatedFlowEdits: customisations a dependent flow made to template nodes.
*/
package domain
