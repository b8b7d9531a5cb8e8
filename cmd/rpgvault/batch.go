package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpgvault/ingest/internal/enhancer"
	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/model"
)

// isPDFFile reports whether a directory entry is a regular file with a
// .pdf extension (case-insensitive).
func isPDFFile(entry os.DirEntry) bool {
	if entry.IsDir() {
		return false
	}
	return strings.EqualFold(filepath.Ext(entry.Name()), ".pdf")
}

var batchContinueOnError bool

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Run extract on every PDF in a directory",
	Long: `batch walks a directory (non-recursively) and runs upload, analyze,
extract on every .pdf file it finds, using the same provider/enhance/layout
flags as extract. By default it stops at the first failure; pass
--continue-on-error to keep going and report a summary at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := args[0]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}

		a, logger, err := loadApp()
		if err != nil {
			return err
		}

		var failures int
		for _, entry := range entries {
			if !isPDFFile(entry) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			_, err := runExtractPipeline(ctx, a.Orchestrator, path, cmd.OutOrStdout(), logger)
			if err == nil {
				continue
			}
			// A duplicate rejection is a successful outcome for batch: the
			// work is already ingested.
			if ingesterr.KindOf(err) == ingesterr.KindRejectedDuplicate {
				logger.Info("batch item already ingested", "file", path)
				continue
			}
			logger.Error("batch item failed", "file", path, "error", err)
			failures++
			if !batchContinueOnError {
				return err
			}
		}

		if failures > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "batch complete: %d failure(s)\n", failures)
			return fmt.Errorf("batch: %d item(s) failed", failures)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "batch complete: all items succeeded")
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&extractProvider, "provider", "mock", "AI provider variant: mock, cloud-a, cloud-b, local-http")
	batchCmd.Flags().StringVar(&extractKind, "kind", string(model.KindSourceMaterial), "content kind: source_material or novel")
	batchCmd.Flags().StringVar(&extractEnhance, "enhance", string(enhancer.ModeNormal), "text enhancement mode: off, normal, aggressive")
	batchCmd.Flags().StringVar(&extractLayout, "layout", string(model.LayoutSeparate), "collection layout: separate or single")
	batchCmd.Flags().BoolVar(&batchContinueOnError, "continue-on-error", false, "keep processing remaining files after a failure")
	rootCmd.AddCommand(batchCmd)
}
