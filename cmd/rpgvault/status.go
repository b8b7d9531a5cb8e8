package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpgvault/ingest/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show a session's current stage, or list every known session",
	Long: `status with a session id prints that session's stage, progress percent,
and verdict (if identified). Without an argument it lists every session
known to this process, most recently touched first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := loadApp()
		if err != nil {
			return err
		}
		orch := a.Orchestrator

		if len(args) == 1 {
			snap, err := orch.Status(args[0])
			if err != nil {
				return err
			}
			printSnapshot(cmd, snap)
			return nil
		}

		health := orch.Health(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "vector_store=%s document_store=%s\n", health.VectorStore, health.DocumentStore)
		for name, state := range health.Providers {
			fmt.Fprintf(cmd.OutOrStdout(), "provider %s=%s\n", name, state)
		}

		for _, snap := range orch.Sessions.List() {
			printSnapshot(cmd, snap)
		}
		return nil
	},
}

func printSnapshot(cmd *cobra.Command, snap pipeline.Snapshot) {
	if snap.Err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  stage=%s  percent=%d  error=%v\n",
			snap.ID, snap.Stage, snap.Percent, snap.Err)
		return
	}
	if snap.Verdict != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  stage=%s  percent=%d  game=%s book=%s\n",
			snap.ID, snap.Stage, snap.Percent, snap.Verdict.Game, snap.Verdict.Book)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  stage=%s  percent=%d\n", snap.ID, snap.Stage, snap.Percent)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
