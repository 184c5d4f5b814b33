package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/observability"
	"github.com/nbenliogludev/go-workflow-agent/internal/task"
)

func newRunCmd() *cobra.Command {
	var (
		t           task.Task
		cookiesFile string
		headless    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one task against an app and capture its UI states",
		Example: `  agent-cli run --app linear --task "Create a new project"
  agent-cli run --app notion --task "Create a page" --url https://www.notion.so --cookies notion.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *appConfig
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}
			logger := observability.GetLogger()

			if cookiesFile != "" {
				cookies, err := task.LoadCookies(cookiesFile)
				if err != nil {
					return err
				}
				t.AuthCookies = cookies
			}
			if err := t.Validate(); err != nil {
				return err
			}

			engine, err := buildEngine(&cfg, logger)
			if err != nil {
				return err
			}

			logger.Info("starting run", zap.String("app", t.App), zap.String("task", t.Description))
			result := engine.Run(t)
			printResult(cmd.OutOrStdout(), result)
			if !result.Success {
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&t.App, "app", "", "app name from the registry (required)")
	cmd.Flags().StringVar(&t.Description, "task", "", "what the agent should do (required)")
	cmd.Flags().StringVar(&t.BaseURL, "url", "", "start URL, overrides the registry")
	cmd.Flags().StringVar(&cookiesFile, "cookies", "", "JSON file with auth cookies")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	_ = cmd.MarkFlagRequired("app")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}
