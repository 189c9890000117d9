package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/internal/presentation/tui"
	"github.com/aretw0/flowgraph/internal/validator"
	"github.com/aretw0/flowgraph/pkg/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph>",
	Short: "Run the publish checks on a graph",
	Long: `Lints the graph structure, flattens external portals against --flows, then
runs every publish check. Exits with status 1 when a check fails.`,
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
		if err := g.Validate(); err != nil {
			return err
		}
		if strict, _ := cmd.Flags().GetBool("strict"); strict {
			if err := validator.ValidateGraph(g); err != nil {
				return err
			}
		} else {
			for _, issue := range validator.Lint(g) {
				e.logger.Warn("Structural issue", "node_id", issue.NodeID, "issue", issue.Message)
			}
		}

		flowsDir, _ := cmd.Flags().GetString("flows")
		editsPath, _ := cmd.Flags().GetString("edits")
		templated, _ := cmd.Flags().GetBool("templated")

		engine := e.engine()
		flowID := flowIDFlag(cmd, args[0])
		flat, err := engine.Flatten(ctx, flowID, g, cli.DirResolver(flowsDir))
		if err != nil {
			return err
		}

		in := validation.Input{Graph: flat, Templated: templated || editsPath != ""}
		if editsPath != "" {
			if in.Edits, err = cli.LoadEdits(editsPath); err != nil {
				return err
			}
		}

		report := engine.Validate(ctx, flowID, in)
		if err := cli.Emit(cmd.OutOrStdout(), e.output, report, tui.ReportMarkdown(report)); err != nil {
			return err
		}
		if !report.Passed() {
			return errSilent
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("flow-id", "", "Flow id (defaults to the file name)")
	validateCmd.Flags().String("flows", "", "Directory of published graphs named <flowId>.json")
	validateCmd.Flags().String("edits", "", "Templated flow edits document")
	validateCmd.Flags().Bool("templated", false, "Treat the flow as templated")
	validateCmd.Flags().Bool("strict", false, "Fail on structural issues such as unreachable nodes")
}
