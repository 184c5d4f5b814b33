package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-workflow-agent/internal/dataset"
	"github.com/nbenliogludev/go-workflow-agent/internal/observability"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs in the dataset",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := dataset.NewStore(appConfig.Dataset.Root, observability.GetLogger())
			runs, err := store.ListRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no runs in %s\n", store.Root())
				return nil
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Show one run by run name or workflow name (latest wins)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := dataset.NewStore(appConfig.Dataset.Root, observability.GetLogger())
			result, err := store.LoadResult(args[0])
			if errors.Is(err, dataset.ErrRunNotFound) {
				return fmt.Errorf("no run named %q in %s", args[0], store.Root())
			}
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	})
	return cmd
}
