package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph/internal/cli"
)

var templateCmd = &cobra.Command{
	Use:   "template <source> <edits>",
	Short: "Apply a templated flow's edits to its source graph",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		source, err := cli.LoadGraph(ctx, args[0])
		if err != nil {
			return err
		}
		edits, err := cli.LoadEdits(args[1])
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")

		merged := e.engine().ReconcileTemplate(ctx, flowIDFlag(cmd, args[1]), source, edits)
		return writeResult(cmd.OutOrStdout(), out, merged)
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.Flags().String("flow-id", "", "Dependent flow id (defaults to the edits file name)")
	templateCmd.Flags().String("out", "", "Write the merged graph to this file instead of stdout")
}
