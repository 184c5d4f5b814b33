//go:build e2e

package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nbenliogludev/go-workflow-agent/internal/config"
	"github.com/nbenliogludev/go-workflow-agent/internal/task"
)

// Runs a real browser against a public page with the real oracle:
//
//	OPENAI_API_KEY=... go test -tags e2e ./cmd/agent-cli -run TestLiveRun -v
func TestLiveRun(t *testing.T) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("OPENAI_API_KEY is not set")
	}

	cfg := config.NewDefaultConfig()
	cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Browser.Headless = true
	cfg.Browser.UserDataDir = ""
	cfg.Dataset.Root = t.TempDir()
	cfg.Engine.MaxIterations = 6
	if backend := os.Getenv("E2E_BACKEND"); backend != "" {
		cfg.Browser.Backend = backend
	}

	engine, err := buildEngine(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	result := engine.Run(task.Task{
		App:         "example",
		Description: "Open the 'More information' link",
		BaseURL:     "https://example.com/",
	})

	require.NotNil(t, result)
	assert.GreaterOrEqual(t, result.TotalStates, 1)
	assert.NotEmpty(t, result.OutputDir)
	t.Logf("success=%v states=%d dir=%s", result.Success, result.TotalStates, result.OutputDir)
}
