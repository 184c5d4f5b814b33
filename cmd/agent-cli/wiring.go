package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/agent"
	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
	"github.com/nbenliogludev/go-workflow-agent/internal/config"
	"github.com/nbenliogludev/go-workflow-agent/internal/dataset"
	"github.com/nbenliogludev/go-workflow-agent/internal/llm"
	"github.com/nbenliogludev/go-workflow-agent/internal/task"
)

// buildEngine wires the configured browser backend, oracle, dataset store
// and app registry into one engine.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*agent.Engine, error) {
	launcher, err := browser.NewLauncher(cfg.Browser, logger)
	if err != nil {
		return nil, err
	}

	oracle, err := llm.NewOpenAIClient(cfg.Oracle, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle client: %w", err)
	}
	oracle = oracle.WithPromptLimits(llm.PromptLimits{
		Elements:  cfg.Engine.MaxElements,
		History:   cfg.Engine.HistorySize,
		TextLimit: cfg.Engine.ElementTextLimit,
	})

	registry, err := task.LoadRegistry(cfg.Apps.File)
	if err != nil {
		return nil, err
	}

	var opts []agent.Option
	if cfg.Oracle.Summarize {
		opts = append(opts, agent.WithSummarizer(oracle))
	}

	store := dataset.NewStore(cfg.Dataset.Root, logger)
	return agent.NewEngine(cfg, launcher, oracle, store, registry, logger, opts...), nil
}
