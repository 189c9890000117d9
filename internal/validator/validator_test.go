package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/dsl"
)

func TestValidateGraph(t *testing.T) {
	// Scenario A: Valid Graph
	b := dsl.New()
	b.Root().To("q1", "ext")
	b.Add("q1").Question("Listed?", "listed").To("yes", "no")
	b.Add("yes").Answer("Yes", "true")
	b.Add("no").Answer("No", "false")
	b.Add("ext").External("fees")

	assert.NoError(t, ValidateGraph(b.Graph()))
	assert.Empty(t, Lint(b.Graph()))

	// Scenario B: Broken Graph
	b.Add("orphan").Notice("Nobody links here")
	b.Add("q2").Checklist("Which?", "which")
	b.Add("stray").Answer("Stray", "x")
	b.Add("section").Section("About").To("stray")
	b.Root().To("q2", "section", "gone")
	b.Add("ext").To("yes")

	err := ValidateGraph(b.Graph())
	require.Error(t, err)
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "found 6 errors:"), msg)
	assert.Contains(t, msg, "'_root': edge to missing node 'gone'")
	assert.Contains(t, msg, "'orphan': unreachable from the root")
	assert.Contains(t, msg, "'q2': Checklist has no answers")
	assert.Contains(t, msg, "'stray': answer under Section 'section'")
	assert.Contains(t, msg, "'yes': answer under ExternalPortal 'ext'")
	assert.Contains(t, msg, "'ext': external portal owns edges")
}

func TestLint_MissingRoot(t *testing.T) {
	issues := Lint(domain.Graph{"a": {}})
	require.Len(t, issues, 1)
	assert.Equal(t, domain.RootID, issues[0].NodeID)
}

func TestLint_ExternalPortalWithoutFlow(t *testing.T) {
	b := dsl.New()
	b.Root().To("ext")
	b.Add("ext").Type(domain.TypeExternalPortal)

	issues := Lint(b.Graph())
	require.Len(t, issues, 1)
	assert.Equal(t, "external portal names no flow", issues[0].Message)
}
