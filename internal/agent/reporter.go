package agent

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/dataset"
	"github.com/nbenliogludev/go-workflow-agent/internal/llm"
)

// Reporter logs decisions as they happen and the outcome of each run. With a
// summarizer attached it also asks the oracle for a written report.
type Reporter struct {
	store      RunStore
	summarizer llm.Summarizer
	logger     *zap.Logger
}

func NewReporter(store RunStore, logger *zap.Logger) *Reporter {
	return &Reporter{store: store, logger: logger}
}

func (r *Reporter) LogDecision(logger *zap.Logger, iteration int, url string, d *llm.ActionDecision) {
	logger.Info("decision",
		zap.Int("iteration", iteration),
		zap.String("url", url),
		zap.String("action", string(d.Kind)),
		zap.String("target", d.Target),
		zap.String("description", d.TargetDescription),
		zap.Float64("confidence", d.Confidence),
		zap.Bool("capture_state", d.CaptureState),
		zap.Bool("task_complete", d.TaskComplete),
		zap.Bool("user_satisfied", d.UserSatisfied),
		zap.String("reasoning", d.Reasoning),
	)
}

func (r *Reporter) Report(logger *zap.Logger, result *dataset.WorkflowResult) {
	fields := []zap.Field{
		zap.Bool("success", result.Success),
		zap.Int("states", result.TotalStates),
		zap.Int("iterations", result.Iterations),
		zap.Duration("duration", time.Duration(result.DurationSeconds*float64(time.Second)).Truncate(time.Millisecond)),
		zap.String("output", result.OutputDir),
	}
	if len(result.Warnings) > 0 {
		fields = append(fields, zap.Strings("warnings", result.Warnings))
	}
	if result.ErrorMessage != "" {
		fields = append(fields, zap.String("error", result.ErrorMessage))
	}
	logger.Info("run finished", fields...)
}

// Summarize writes summary.md into dir. Failures are logged and otherwise
// ignored; the run result is already on disk.
func (r *Reporter) Summarize(logger *zap.Logger, dir string, result *dataset.WorkflowResult, steps []string, finalURL, exit string) {
	if r.summarizer == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("summary generation panicked", zap.Any("panic", p))
		}
	}()

	summary, err := r.summarizer.SummarizeRun(llm.SummaryInput{
		Task:       result.TaskDescription,
		App:        result.App,
		ExitReason: humanizeReason(exit),
		FinalURL:   finalURL,
		Duration:   fmt.Sprintf("%.1fs", result.DurationSeconds),
		Steps:      steps,
		States:     result.TotalStates,
	})
	if err != nil {
		logger.Warn("failed to generate summary", zap.Error(err))
		return
	}
	if err := r.store.SaveSummary(dir, summary); err != nil {
		logger.Warn("summary not saved", zap.Error(err))
	}
}
