// Package middleware decorates a ports.SessionStore with at-rest protections
// for the personal data a session's passport and breadcrumbs carry.
package middleware

import "github.com/aretw0/flowgraph/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
