package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowgraph/pkg/diff"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/reconcile"
	"github.com/aretw0/flowgraph/pkg/validation"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
	assert.GreaterOrEqual(t, strings.Count(buf.String(), "\n"), 8)
}

func TestReportMarkdown(t *testing.T) {
	report := validation.Report{Checks: []validation.Result{
		{Title: "Sections", Status: validation.StatusPass, Message: "ok"},
		{Title: "Pay", Status: validation.StatusFail, Message: "needs a | SetFee"},
	}}

	md := ReportMarkdown(report)
	assert.Contains(t, md, "| Sections | Pass | ok |")
	assert.Contains(t, md, `needs a \| SetFee`)
	assert.Contains(t, md, "1 check(s) failed")

	md = ReportMarkdown(validation.Report{Checks: report.Checks[:1]})
	assert.Contains(t, md, "All checks passed")
}

func TestChangesMarkdown(t *testing.T) {
	assert.Contains(t, ChangesMarkdown(nil), "No changes.")

	md := ChangesMarkdown(diff.Changes{
		"q1": {ID: "q1", Type: domain.TypeQuestion, Added: true},
		"a1": {ID: "a1", Type: domain.TypeAnswer, Removed: true},
		"s1": {ID: "s1", Type: domain.TypeSection},
	})
	added := strings.Index(md, "## Added")
	modified := strings.Index(md, "## Modified")
	removed := strings.Index(md, "## Removed")
	require.True(t, added >= 0 && modified > added && removed > modified)
	assert.Contains(t, md, "- `q1` Question")
	assert.Contains(t, md, "- `a1` Answer")
}

func TestReconcileMarkdown(t *testing.T) {
	assert.Contains(t, ReconcileMarkdown(reconcile.Result{}), "still valid")

	md := ReconcileMarkdown(reconcile.Result{
		Changed:           true,
		RemovedIDs:        []string{"q1"},
		AlteredSectionIDs: []string{"s1"},
	})
	assert.Contains(t, md, "Removed 1 breadcrumb(s)")
	assert.Contains(t, md, "- `q1`")
	assert.Contains(t, md, "Sections to revisit: s1")
}

func TestStatusLine(t *testing.T) {
	pass := validation.Report{Checks: []validation.Result{{Title: "A", Status: validation.StatusPass}}}
	assert.Equal(t, "✔ all checks passed", StatusLine(termenv.Ascii, pass))

	fail := validation.Report{Checks: []validation.Result{
		{Title: "A", Status: validation.StatusFail},
		{Title: "B", Status: validation.StatusFail},
	}}
	assert.Equal(t, "✘ failed: A; B", StatusLine(termenv.Ascii, fail))
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("# Title\n\nbody")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}
