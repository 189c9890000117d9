package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph>",
	Short: "Export the flow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the flow. With --breadcrumbs the
answered nodes of a session are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := cli.LoadGraph(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if path, _ := cmd.Flags().GetString("breadcrumbs"); path != "" {
			crumbs, err := cli.LoadBreadcrumbs(path)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromBreadcrumbs(crumbs)
			overlay.CurrentNode, _ = cmd.Flags().GetString("current")
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("breadcrumbs", "", "Breadcrumbs or session document to overlay")
	graphCmd.Flags().String("current", "", "Node to highlight as current (with --breadcrumbs)")
}
