package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/pkg/domain"
)

var copyCmd = &cobra.Command{
	Use:   "copy <graph>",
	Short: "Copy a graph, or the subgraph of a portal, under fresh ids",
	Long: `Appends --suffix to every node id except the root. With --portal, only the
portal's subgraph is copied and it becomes the root of a new flow.`,
	Args: cobra.ExactArgs(1),
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
		suffix, _ := cmd.Flags().GetString("suffix")
		portal, _ := cmd.Flags().GetString("portal")
		out, _ := cmd.Flags().GetString("out")

		engine := e.engine()
		flowID := flowIDFlag(cmd, args[0])

		var copied domain.Graph
		if portal != "" {
			copied, err = engine.CopyPortalAsFlow(ctx, flowID, g, portal, suffix)
		} else {
			copied, err = engine.CopyFlow(ctx, flowID, g, suffix)
		}
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), out, copied)
	},
}

func init() {
	rootCmd.AddCommand(copyCmd)
	copyCmd.Flags().String("flow-id", "", "Flow id (defaults to the file name)")
	copyCmd.Flags().String("suffix", "", "Suffix appended to every copied id")
	copyCmd.Flags().String("portal", "", "Copy only the subgraph of this internal portal")
	copyCmd.Flags().String("out", "", "Write the copy to this file instead of stdout")
	_ = copyCmd.MarkFlagRequired("suffix")
}
