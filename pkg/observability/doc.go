/*
Package observability provides tools for monitoring the flowgraph engine.

It includes Prometheus metrics for engine operations and publish checks, and
lifecycle hooks that log or record every operation. Hooks compose with Chain.
*/
package observability
