package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/aretw0/flowgraph/pkg/session"
)

// SessionRow is one line of a session listing.
type SessionRow struct {
	ID          string `json:"id"`
	FlowID      string `json:"flowId"`
	FlowVersion int    `json:"flowVersion"`
	Breadcrumbs int    `json:"breadcrumbs"`
	Locked      bool   `json:"locked"`
}

// ListSessions loads a summary of every stored session, sorted by id.
// Sessions that vanish while listing are skipped.
func ListSessions(ctx context.Context, mgr *session.Manager) ([]SessionRow, error) {
	ids, err := mgr.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	sort.Strings(ids)

	rows := make([]SessionRow, 0, len(ids))
	for _, id := range ids {
		s, err := mgr.Load(ctx, id)
		if err != nil {
			continue
		}
		rows = append(rows, SessionRow{
			ID:          s.ID,
			FlowID:      s.FlowID,
			FlowVersion: s.FlowVersion,
			Breadcrumbs: len(s.Breadcrumbs),
			Locked:      s.LockedAt != nil,
		})
	}
	return rows, nil
}

// PrintSessions writes rows as an aligned table.
func PrintSessions(w io.Writer, rows []SessionRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No active sessions found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tFLOW\tVERSION\tCRUMBS\tLOCKED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%t\n", r.ID, r.FlowID, r.FlowVersion, r.Breadcrumbs, r.Locked)
	}
	return tw.Flush()
}
