package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/internal/presentation/tui"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/validation"
)

var flowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Manage flows in the configured store",
	Long:  `Import drafts, run publish checks, publish and sync templated flows stored in the configured backend.`,
}

var flowImportCmd = &cobra.Command{
	Use:   "import <graph>",
	Short: "Create a flow whose draft is the given graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		g, err := cli.LoadGraph(ctx, args[0])
		if err != nil {
			return err
		}
		if err := g.Validate(); err != nil {
			return err
		}

		svc, closeFn, err := e.service(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		flow := domain.Flow{Data: g}
		flow.ID, _ = cmd.Flags().GetString("id")
		flow.Slug, _ = cmd.Flags().GetString("slug")
		flow.TeamID, _ = cmd.Flags().GetString("team")
		flow.TemplatedFrom, _ = cmd.Flags().GetString("templated-from")
		if flow.Slug == "" {
			flow.Slug = trimExt(args[0])
		}

		id, err := svc.Graphs().InsertFlow(ctx, flow)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var flowCheckCmd = &cobra.Command{
	Use:   "check <flow-id>",
	Short: "Diff the draft against the last publish and run the publish checks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		svc, closeFn, err := e.service(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := svc.ValidateDraft(ctx, args[0])
		if err != nil {
			return err
		}
		if err := cli.Emit(cmd.OutOrStdout(), e.output, report, publishMarkdown(report)); err != nil {
			return err
		}
		if !report.Passed() {
			return errSilent
		}
		return nil
	},
}

var flowPublishCmd = &cobra.Command{
	Use:   "publish <flow-id>",
	Short: "Publish the draft as the next snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		svc, closeFn, err := e.service(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		req := flowgraph.PublishRequest{}
		req.PublisherID, _ = cmd.Flags().GetString("publisher")
		req.Summary, _ = cmd.Flags().GetString("summary")
		if cmd.Flags().Changed("expected-version") {
			v, _ := cmd.Flags().GetInt("expected-version")
			req.ExpectedVersion = &v
		}

		snapshot, report, err := svc.Publish(ctx, args[0], req)
		if report != nil {
			if emitErr := cli.Emit(cmd.OutOrStdout(), e.output, report, publishMarkdown(report)); emitErr != nil {
				return emitErr
			}
		}
		if err != nil {
			return err
		}
		e.logger.Info("Flow published", "flow_id", args[0], "version", snapshot.Version)
		return nil
	},
}

var flowSyncCmd = &cobra.Command{
	Use:   "sync-template <flow-id>",
	Short: "Rebuild a templated flow's draft from its source and edits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		svc, closeFn, err := e.service(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		g, err := svc.SyncTemplate(ctx, args[0])
		if err != nil {
			return err
		}
		return cli.WriteJSON(cmd.OutOrStdout(), g)
	},
}

func publishMarkdown(r *flowgraph.PublishReport) string {
	md := "**" + r.Message + "**\n\n"
	if r.AlteredNodes != nil {
		md += tui.ChangesMarkdown(r.AlteredNodes) + "\n"
	}
	return md + tui.ReportMarkdown(validation.Report{Checks: r.Checks})
}

func init() {
	rootCmd.AddCommand(flowCmd)
	flowCmd.AddCommand(flowImportCmd, flowCheckCmd, flowPublishCmd, flowSyncCmd)

	flowImportCmd.Flags().String("id", "", "Flow id (assigned by the store when empty)")
	flowImportCmd.Flags().String("slug", "", "Flow slug (defaults to the file name)")
	flowImportCmd.Flags().String("team", "", "Owning team id")
	flowImportCmd.Flags().String("templated-from", "", "Source template flow id")

	flowPublishCmd.Flags().String("publisher", "", "Publisher id recorded on the snapshot")
	flowPublishCmd.Flags().String("summary", "", "Summary recorded on the snapshot")
	flowPublishCmd.Flags().Int("expected-version", 0, "Latest published version the draft was checked against")
}
