package agent

import (
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
	"github.com/nbenliogludev/go-workflow-agent/internal/config"
	"github.com/nbenliogludev/go-workflow-agent/internal/dataset"
	"github.com/nbenliogludev/go-workflow-agent/internal/llm"
	"github.com/nbenliogludev/go-workflow-agent/internal/task"
)

// RunStore is the dataset side of a run: one directory in, one result out.
type RunStore interface {
	ArtifactStore
	CreateRunDirectory(name string) (runName string, dir string, err error)
	SaveResult(dir string, result *dataset.WorkflowResult) error
	SaveSummary(dir, summary string) error
}

// BaseURLResolver picks the starting URL for a task.
type BaseURLResolver interface {
	BaseURL(t task.Task) (string, error)
}

// Engine runs workflow tasks. It holds no per-run state, so one Engine can
// serve concurrent runs as long as the launcher hands out separate sessions.
type Engine struct {
	launcher browser.Launcher
	oracle   llm.Client
	store    RunStore
	resolver BaseURLResolver
	reporter *Reporter

	browserCfg config.BrowserConfig
	engineCfg  config.EngineConfig

	logger *zap.Logger
	sleep  func(time.Duration)
	now    func() time.Time
}

type Option func(*Engine)

// WithSummarizer makes the engine write summary.md after every run.
func WithSummarizer(s llm.Summarizer) Option {
	return func(e *Engine) { e.reporter.summarizer = s }
}

// WithSleep replaces every pause the engine takes (tests use a no-op).
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Engine) { e.sleep = sleep }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(
	cfg *config.Config,
	launcher browser.Launcher,
	oracle llm.Client,
	store RunStore,
	resolver BaseURLResolver,
	logger *zap.Logger,
	opts ...Option,
) *Engine {
	if resolver == nil {
		resolver = task.NewRegistry(nil)
	}
	logger = logger.Named("engine")
	e := &Engine{
		launcher:   launcher,
		oracle:     oracle,
		store:      store,
		resolver:   resolver,
		reporter:   NewReporter(store, logger),
		browserCfg: cfg.Browser,
		engineCfg:  cfg.Engine,
		logger:     logger,
		sleep:      time.Sleep,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
