package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/pkg/replace"
)

var replaceCmd = &cobra.Command{
	Use:   "replace <graph>",
	Short: "Find, and optionally replace, text in node data",
	Long: `Searches every string in node data for --find. With --replace the matches are
replaced; rich text fields are sanitised afterwards. --write saves the updated graph.`,
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

		search, _ := cmd.Flags().GetString("find")
		var replacement *string
		if cmd.Flags().Changed("replace") {
			r, _ := cmd.Flags().GetString("replace")
			replacement = &r
		}

		res, err := e.engine().FindAndReplace(ctx, flowIDFlag(cmd, args[0]), g, search, replacement)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("write")
		if out != "" && res.UpdatedFlow != nil {
			if err := writeResult(cmd.OutOrStdout(), out, res.UpdatedFlow); err != nil {
				return err
			}
			e.logger.Info("Updated graph written", "path", out, "nodes", len(res.Matches))
		}
		return cli.Emit(cmd.OutOrStdout(), e.output, res, matchesMarkdown(res))
	},
}

func matchesMarkdown(res *replace.Result) string {
	var sb strings.Builder
	sb.WriteString("# " + res.Message + "\n\n")
	ids := make([]string, 0, len(res.Matches))
	for id := range res.Matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		keys := make([]string, 0, len(res.Matches[id]))
		for k := range res.Matches[id] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(fmt.Sprintf("- `%s`: %s\n", id, strings.Join(keys, ", ")))
	}
	return sb.String()
}

func init() {
	rootCmd.AddCommand(replaceCmd)
	replaceCmd.Flags().String("flow-id", "", "Flow id (defaults to the file name)")
	replaceCmd.Flags().String("find", "", "Text to search for")
	replaceCmd.Flags().String("replace", "", "Replacement text")
	replaceCmd.Flags().StringP("write", "w", "", "Write the updated graph to this file")
	_ = replaceCmd.MarkFlagRequired("find")
}
