package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/internal/config"
)

// errSilent makes the command fail without printing anything more.
var errSilent = errors.New("")

var rootCmd = &cobra.Command{
	Use:   "flowgraph",
	Short: "Flowgraph edits, checks and publishes service flow graphs",
	Long: `Flowgraph works on flow graphs: typed nodes keyed by id under a single root.

File commands (validate, diff, replace, copy, flatten, reconcile, template, graph)
read graph documents from JSON/YAML files or node directories and print results.
Store commands (flow, session, serve, mcp) use the backends from --config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Commands see a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx := cli.NewSignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	ctx.Cancel()
	if err != nil {
		if err != errSilent {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level to stderr")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Disable logging")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format: text, json or markdown")
}

// env is what every command needs from the persistent flags.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	output cli.Output
}

func setup(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	quiet, _ := cmd.Flags().GetBool("quiet")
	outFlag, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	out, err := cli.ParseOutput(outFlag)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: cli.NewLogger(cfg, debug, quiet), output: out}, nil
}

// engine builds a store-less engine for the file commands.
func (e *env) engine() *flowgraph.Engine {
	return cli.NewEngine(e.cfg, e.logger, nil)
}

// service opens the configured backends. The returned func closes them.
func (e *env) service(ctx context.Context) (*flowgraph.Service, func(), error) {
	svc, backends, err := cli.NewService(ctx, e.cfg, e.engine(), e.logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, func() {
		if err := backends.Close(); err != nil {
			e.logger.Warn("Failed to close backends", "err", err)
		}
	}, nil
}

// flowIDFlag returns --flow-id, defaulting to the graph file name.
func flowIDFlag(cmd *cobra.Command, path string) string {
	id, _ := cmd.Flags().GetString("flow-id")
	if id != "" {
		return id
	}
	return trimExt(path)
}
