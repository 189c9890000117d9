/*
Package ports defines the driven ports (interfaces) for the flowgraph service.

These interfaces decouple the workflows around the engine from external
implementations, allowing them to work with various storage backends.

# Key Interfaces

  - GraphStore: flows, their drafts and their published snapshots.
  - SessionStore: in-progress user sessions and their breadcrumbs.
  - TemplateEditsStore: the customisation overlay of templated flows.
  - DistributedLocker: distributed locking for concurrent session access.

Reusable contract suites for every store live in the tests sub-package.
*/
package ports
