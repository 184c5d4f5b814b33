package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nbenliogludev/go-workflow-agent/internal/dataset"
	"github.com/nbenliogludev/go-workflow-agent/internal/observability"
	"github.com/nbenliogludev/go-workflow-agent/internal/task"
)

func newBatchCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Run every task of a yaml batch file",
		Long: `Runs the tasks listed under "tasks:" in FILE. Each run gets its own browser
session and run directory; at most batch.concurrency runs are in flight.
Ctrl+C stops scheduling new runs; started runs finish and are saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *appConfig
			if cmd.Flags().Changed("concurrency") {
				cfg.Batch.Concurrency = concurrency
			}
			if cfg.Batch.Concurrency <= 0 {
				return fmt.Errorf("concurrency must be a positive integer")
			}
			// A persistent profile directory cannot be opened by two
			// browsers at once.
			if cfg.Batch.Concurrency > 1 {
				cfg.Browser.UserDataDir = ""
			}
			logger := observability.GetLogger().Named("batch")

			tasks, err := task.LoadBatch(args[0])
			if err != nil {
				return err
			}
			engine, err := buildEngine(&cfg, logger)
			if err != nil {
				return err
			}

			sig := NewSignalController()
			defer sig.Close()

			results := make([]*dataset.WorkflowResult, len(tasks))
			var g errgroup.Group
			g.SetLimit(cfg.Batch.Concurrency)
			for i, t := range tasks {
				if sig.Interrupted() {
					logger.Warn("interrupted, not starting remaining tasks", zap.Int("skipped", len(tasks)-i))
					break
				}
				g.Go(func() error {
					results[i] = engine.Run(t)
					return nil
				})
			}
			_ = g.Wait()

			out := cmd.OutOrStdout()
			printBatch(out, tasks, results)

			for _, r := range results {
				if r == nil || !r.Success {
					return errRunFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "max concurrent runs (default batch.concurrency)")
	return cmd
}
