package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph/internal/cli"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten <graph>",
	Short: "Inline the flows referenced by external portals",
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
		flowsDir, _ := cmd.Flags().GetString("flows")
		out, _ := cmd.Flags().GetString("out")

		flat, err := e.engine().Flatten(ctx, flowIDFlag(cmd, args[0]), g, cli.DirResolver(flowsDir))
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), out, flat)
	},
}

func init() {
	rootCmd.AddCommand(flattenCmd)
	flattenCmd.Flags().String("flow-id", "", "Flow id (defaults to the file name)")
	flattenCmd.Flags().String("flows", "", "Directory of published graphs named <flowId>.json")
	flattenCmd.Flags().String("out", "", "Write the flattened graph to this file instead of stdout")
}
