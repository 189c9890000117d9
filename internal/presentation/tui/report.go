package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/flowgraph/pkg/diff"
	"github.com/aretw0/flowgraph/pkg/reconcile"
	"github.com/aretw0/flowgraph/pkg/validation"
)

// ReportMarkdown renders the publish checks as a markdown table.
func ReportMarkdown(report validation.Report) string {
	var sb strings.Builder
	sb.WriteString("# Publish checks\n\n")
	sb.WriteString("| Check | Status | Message |\n")
	sb.WriteString("|---|---|---|\n")
	for _, c := range report.Checks {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", cell(c.Title), c.Status, cell(c.Message)))
	}
	sb.WriteString("\n")
	if report.Passed() {
		sb.WriteString("**All checks passed.**\n")
	} else {
		sb.WriteString(fmt.Sprintf("**%d check(s) failed.**\n", len(report.Failed())))
	}
	return sb.String()
}

// ChangesMarkdown renders a diff as three bullet lists.
func ChangesMarkdown(changes diff.Changes) string {
	var sb strings.Builder
	sb.WriteString("# Changes\n\n")
	if changes == nil {
		sb.WriteString("No changes.\n")
		return sb.String()
	}
	s := changes.Summary()
	section := func(title string, ids []string) {
		if len(ids) == 0 {
			return
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", title))
		for _, id := range ids {
			line := "`" + id + "`"
			if n := changes[id]; n.Type != 0 {
				line += " " + n.Type.String()
			}
			sb.WriteString("- " + line + "\n")
		}
		sb.WriteString("\n")
	}
	section("Added", s.Added)
	section("Modified", s.Modified)
	section("Removed", s.Removed)
	return sb.String()
}

// ReconcileMarkdown renders the outcome of a breadcrumb reconciliation.
func ReconcileMarkdown(res reconcile.Result) string {
	var sb strings.Builder
	sb.WriteString("# Session reconciliation\n\n")
	if !res.Changed {
		sb.WriteString("Breadcrumbs are still valid.\n")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("Removed %d breadcrumb(s):\n\n", len(res.RemovedIDs)))
	for _, id := range res.RemovedIDs {
		sb.WriteString("- `" + id + "`\n")
	}
	if len(res.AlteredSectionIDs) > 0 {
		sb.WriteString("\nSections to revisit: " + strings.Join(res.AlteredSectionIDs, ", ") + "\n")
	}
	return sb.String()
}

// StatusLine is a one-line coloured summary of a report, for terminals that
// should not get the full table.
func StatusLine(p termenv.Profile, report validation.Report) string {
	failed := report.Failed()
	if len(failed) == 0 {
		return termenv.String("✔ all checks passed").Foreground(p.Color("#22c55e")).String()
	}
	titles := make([]string, len(failed))
	for i, f := range failed {
		titles[i] = f.Title
	}
	return termenv.String("✘ failed: " + strings.Join(titles, "; ")).Foreground(p.Color("#ef4444")).String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
