package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/internal/presentation/tui"
)

var diffCmd = &cobra.Command{
	Use:   "diff <previous> <current>",
	Short: "List the nodes added, removed or modified between two graphs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		prev, err := cli.LoadGraph(ctx, args[0])
		if err != nil {
			return err
		}
		cur, err := cli.LoadGraph(ctx, args[1])
		if err != nil {
			return err
		}

		changes := e.engine().Diff(ctx, flowIDFlag(cmd, args[1]), prev, cur)
		return cli.Emit(cmd.OutOrStdout(), e.output, changes, tui.ChangesMarkdown(changes))
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().String("flow-id", "", "Flow id (defaults to the current file name)")
}
