package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowgraph/pkg/adapters/memory"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := middleware.NewPIIMiddleware([]string{`email`, `^applicant\.phone`})(underlyingStore)

	ctx := context.Background()
	session := domain.NewSession("pii-session", "flow", 1)
	session.Passport.Data["applicant.name"] = "Jo"
	session.Passport.Data["applicant.email"] = "jo@example.com"
	session.Passport.Data["applicant.phone"] = map[string]any{"number": "0123"}
	session.Passport.Data["_address"] = map[string]any{
		"postcode": "SE5 0HU",
		"email":    "owner@example.com",
	}
	session.Breadcrumbs["contact"] = domain.Breadcrumb{Data: map[string]any{"agent.email": "a@example.com"}}

	require.NoError(t, secureStore.SaveSession(ctx, session))
	assert.Equal(t, "jo@example.com", session.Passport.Data["applicant.email"], "caller's session is untouched")

	stored, err := underlyingStore.GetSession(ctx, "pii-session")
	require.NoError(t, err)
	assert.Equal(t, "Jo", stored.Passport.Data["applicant.name"])
	assert.Equal(t, middleware.Mask, stored.Passport.Data["applicant.email"])
	assert.Equal(t, middleware.Mask, stored.Passport.Data["applicant.phone"], "matched objects are masked whole")

	address := stored.Passport.Data["_address"].(map[string]any)
	assert.Equal(t, "SE5 0HU", address["postcode"])
	assert.Equal(t, middleware.Mask, address["email"], "nested keys are masked")

	assert.Equal(t, middleware.Mask, stored.Breadcrumbs["contact"].Data["agent.email"])
}

func TestPIIMiddleware_UpdateBreadcrumbs(t *testing.T) {
	underlyingStore := memory.NewStore()
	store := middleware.NewPIIMiddleware([]string{`email`})(underlyingStore)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, domain.NewSession("s", "flow", 1)))
	crumbs := domain.Breadcrumbs{"c": {Data: map[string]any{"email": "x@example.com"}}}
	require.NoError(t, store.UpdateBreadcrumbs(ctx, "s", crumbs, 2))

	assert.Equal(t, "x@example.com", crumbs["c"].Data["email"])

	stored, err := underlyingStore.GetSession(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, stored.Breadcrumbs["c"].Data["email"])
	assert.Equal(t, 2, stored.FlowVersion)
}

func TestChain_Order(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := make([]byte, 32)
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{`secret`}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)
	ctx := context.Background()

	s := domain.NewSession("s", "flow", 1)
	s.Passport.Data["secret"] = "hidden"
	s.Passport.Data["visible"] = "shown"
	require.NoError(t, store.SaveSession(ctx, s))

	loaded, err := store.GetSession(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Passport.Data["secret"], "masked before sealing")
	assert.Equal(t, "shown", loaded.Passport.Data["visible"])
}
