package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/internal/presentation/tui"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, reconcile and remove sessions stored in the configured backend.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
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

		rows, err := cli.ListSessions(ctx, svc.Sessions())
		if err != nil {
			return err
		}
		if e.output == cli.OutputJSON {
			return cli.WriteJSON(cmd.OutOrStdout(), rows)
		}
		return cli.PrintSessions(cmd.OutOrStdout(), rows)
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a session",
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

		s, err := svc.Sessions().Load(ctx, args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}
		return cli.WriteJSON(cmd.OutOrStdout(), s)
	},
}

var sessionReconcileCmd = &cobra.Command{
	Use:   "reconcile <session-id>",
	Short: "Move a session to the latest published version of its flow",
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

		res, err := svc.ReconcileSession(ctx, args[0])
		if err != nil {
			return err
		}
		md := fmt.Sprintf("Version %d -> %d\n\n", res.FromVersion, res.ToVersion) + tui.ReconcileMarkdown(res.Result)
		return cli.Emit(cmd.OutOrStdout(), e.output, res, md)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>",
	Short: "Remove a session",
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

		if err := svc.Sessions().Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("error deleting session '%s': %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session '%s' deleted.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionReconcileCmd, sessionRmCmd)
}
