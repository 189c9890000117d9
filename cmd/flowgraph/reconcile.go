package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/internal/presentation/tui"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <breadcrumbs> <previous> <current>",
	Short: "Drop the breadcrumbs a new graph version invalidates",
	Long: `Reads breadcrumbs (or a whole session document) recorded against the previous
graph and prints what survives against the current one.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		crumbs, err := cli.LoadBreadcrumbs(args[0])
		if err != nil {
			return err
		}
		prev, err := cli.LoadGraph(ctx, args[1])
		if err != nil {
			return err
		}
		cur, err := cli.LoadGraph(ctx, args[2])
		if err != nil {
			return err
		}

		res := e.engine().ReconcileBreadcrumbs(ctx, flowIDFlag(cmd, args[2]), crumbs, prev, cur)
		return cli.Emit(cmd.OutOrStdout(), e.output, res, tui.ReconcileMarkdown(res))
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().String("flow-id", "", "Flow id (defaults to the current file name)")
}
