package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
	"github.com/nbenliogludev/go-workflow-agent/internal/dataset"
	"github.com/nbenliogludev/go-workflow-agent/internal/llm"
	"github.com/nbenliogludev/go-workflow-agent/internal/task"
)

// Phase is the engine's position in a run.
type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseRunning    Phase = "running"
	PhaseDeciding   Phase = "deciding"
	PhaseExecuting  Phase = "executing"
	PhaseCapturing  Phase = "capturing"
	PhaseCompleting Phase = "completing"
	PhaseFailing    Phase = "failing"
)

// run is the mutable state of one Run call. It never leaves this package.
type run struct {
	id     string
	task   task.Task
	logger *zap.Logger
	start  time.Time
	phase  Phase

	drv      browser.Driver
	released bool

	name string
	dir  string

	snap       *browser.Snapshotter
	detector   *Detector
	dispatcher *Dispatcher
	recorder   *Recorder
	history    *ActionHistory

	iterations int
	success    bool
	err        error
	exit       string
	warnings   []string
	lastURL    string
}

func (r *run) enter(p Phase) {
	r.logger.Debug("phase", zap.String("from", string(r.phase)), zap.String("to", string(p)))
	r.phase = p
}

func (r *run) fail(err error) {
	r.success = false
	r.err = err
	if r.exit == "" {
		r.exit = reasonFailed
	}
	r.enter(PhaseFailing)
}

// Run executes one task to completion. It always returns a result and never
// panics; the browser session is released exactly once on every path.
func (e *Engine) Run(t task.Task) (result *dataset.WorkflowResult) {
	id := uuid.NewString()
	r := &run{
		id:      id,
		task:    t,
		start:   e.now(),
		history: NewActionHistory(e.engineCfg.HistorySize),
		logger:  e.logger.With(zap.String("run_id", id), zap.String("app", t.App)),
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("run aborted", zap.Any("panic", p), zap.Stack("stack"))
			r.fail(fmt.Errorf("unexpected failure: %v", p))
		}
		e.release(r)
		result = e.finish(r)
	}()

	r.logger.Info("run started", zap.String("task", t.Description))
	if err := e.setup(r); err != nil {
		r.logger.Error("run setup failed", zap.Error(err))
		r.fail(err)
		return
	}
	e.loop(r)
	return
}

func (e *Engine) setup(r *run) error {
	r.enter(PhaseStarting)

	drv, err := e.launcher.Launch()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	if drv == nil {
		return ErrSessionUnavailable
	}
	r.drv = drv

	baseURL, err := e.resolver.BaseURL(r.task)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoBaseURL, err)
	}

	if len(r.task.AuthCookies) > 0 {
		if err := drv.AddCookies(r.task.AuthCookies); err != nil {
			r.logger.Warn("auth cookies not applied", zap.Error(err))
		}
	}

	r.logger.Info("navigating", zap.String("url", baseURL))
	if err := drv.Navigate(baseURL, e.browserCfg.NavigationTimeout); err != nil {
		if !errors.Is(err, browser.ErrTimeout) {
			return fmt.Errorf("%w: %s: %w", ErrNavigation, baseURL, err)
		}
		r.logger.Warn("navigation timed out, page may still be usable", zap.String("url", baseURL))
	}

	r.name, r.dir, err = e.store.CreateRunDirectory(dataset.WorkflowName(r.task.App, r.task.Description))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRunDirectory, err)
	}
	r.logger = r.logger.With(zap.String("run", r.name))

	r.snap = browser.NewSnapshotter(drv, e.engineCfg.MaxElements, r.logger)
	r.detector = NewDetector(r.snap, e.engineCfg, e.sleep, r.logger)
	r.dispatcher = NewDispatcher(drv, e.browserCfg, e.engineCfg, e.sleep, r.logger)
	r.recorder = NewRecorder(drv, r.snap, e.store, r.dir, e.now, r.logger)

	// The first state is recorded whatever the detector would say.
	fp := r.detector.Stabilize()
	if _, err := r.recorder.Capture(fp, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrInitialCapture, err)
	}
	r.detector.Confirm(fp)
	r.lastURL = fp.URL
	return nil
}

func (e *Engine) loop(r *run) {
	maxIter := e.engineCfg.MaxIterations
	for i := 1; i <= maxIter; i++ {
		r.iterations = i
		r.logger.Info("iteration", zap.Int("n", i), zap.Int("max", maxIter))

		if e.iterate(r, i) {
			r.success = true
			r.enter(PhaseCompleting)
			return
		}
		e.sleep(e.engineCfg.IterationPause)
	}
	r.exit = reasonBudget
	r.fail(fmt.Errorf("%w: reached max iterations (%d) without completing the task", ErrBudgetExhausted, maxIter))
}

// iterate runs one decide/execute/capture cycle and reports whether the
// oracle declared the task complete.
func (e *Engine) iterate(r *run, n int) bool {
	r.enter(PhaseRunning)
	if err := r.drv.WaitForLoadIdle(e.browserCfg.LoadIdleTimeout); err != nil {
		r.logger.Debug("load idle wait ended early", zap.Error(err))
	}
	elements := r.snap.InteractiveElements()
	r.lastURL = r.drv.CurrentURL()

	r.enter(PhaseDeciding)
	decision := e.decide(r, elements)
	e.reporter.LogDecision(r.logger, n, r.lastURL, decision)

	if decision.Complete() {
		r.exit = completionReason(decision)
		return true
	}

	if decision.Confidence < e.engineCfg.LowConfidenceThreshold {
		warning := fmt.Sprintf("iteration %d: low confidence %.2f for %q", n, decision.Confidence, decision.Describe())
		r.warnings = append(r.warnings, warning)
		r.logger.Warn("low confidence decision, proceeding anyway",
			zap.Float64("confidence", decision.Confidence),
			zap.Float64("threshold", e.engineCfg.LowConfidenceThreshold))
	}

	r.enter(PhaseExecuting)
	executed, ok := e.execute(r, *decision, elements)

	r.enter(PhaseCapturing)
	if executed.CaptureState || ok {
		e.capture(r, executed)
	}
	return false
}

func (e *Engine) decide(r *run, elements []browser.InteractiveElement) *llm.ActionDecision {
	decision, err := e.oracle.DecideAction(llm.DecisionInput{
		Task:       r.task.Description,
		Image:      r.recorder.LastImage(),
		Elements:   elements,
		History:    r.history.Recent(),
		CurrentURL: r.lastURL,
	})
	if err != nil {
		r.logger.Warn("oracle failed, using safe decision", zap.Error(err))
		return llm.SafeDecision(fmt.Sprintf("oracle error: %v", err))
	}
	if decision == nil || !decision.Kind.Valid() {
		r.logger.Warn("oracle returned an invalid decision, using safe decision")
		return llm.SafeDecision("invalid decision")
	}
	return decision
}

// execute dispatches d and, if that fails and d had a target, retries once
// with an alternative locator. It returns the decision as last attempted.
func (e *Engine) execute(r *run, d llm.ActionDecision, elements []browser.InteractiveElement) (llm.ActionDecision, bool) {
	if r.dispatcher.Execute(d) {
		r.history.Add(d.Describe())
		return d, true
	}
	r.logger.Warn("action failed", zap.String("action", d.Describe()))

	if d.Target == "" {
		return d, false
	}
	alt, found := llm.AlternativeLocator(d.Target, elements)
	if !found {
		return d, false
	}

	retry := d.WithTarget(alt)
	r.logger.Info("retrying with alternative locator", zap.String("failed", d.Target), zap.String("alternative", alt))
	if r.dispatcher.Execute(retry) {
		r.history.Add(retry.Describe())
		return retry, true
	}
	r.logger.Warn("alternative locator failed too", zap.String("alternative", alt))
	return retry, false
}

func (e *Engine) capture(r *run, d llm.ActionDecision) {
	fp, isNew, reason := r.detector.Check()
	if !isNew {
		r.logger.Debug("no new state after action", zap.String("action", d.Describe()))
		return
	}
	desc := d.Describe()
	if _, err := r.recorder.Capture(fp, &desc); err != nil {
		r.logger.Warn("state capture failed", zap.Error(err))
		return
	}
	r.detector.Confirm(fp)
	r.logger.Debug("new state", zap.String("trigger", reason))
}

func (e *Engine) release(r *run) {
	if r.drv == nil || r.released {
		return
	}
	r.released = true
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("browser close panicked", zap.Any("panic", p))
		}
	}()
	if err := r.drv.Close(); err != nil {
		r.logger.Warn("browser close failed", zap.Error(err))
	}
}

func (e *Engine) finish(r *run) *dataset.WorkflowResult {
	result := &dataset.WorkflowResult{
		RunID:           r.id,
		RunName:         r.name,
		TaskDescription: r.task.Description,
		App:             r.task.App,
		Timestamp:       e.now(),
		Success:         r.success,
		Iterations:      r.iterations,
		Warnings:        r.warnings,
		OutputDir:       r.dir,
		States:          []dataset.CapturedState{},
	}
	if r.recorder != nil {
		result.States = r.recorder.States()
	}
	result.TotalStates = len(result.States)
	result.DurationSeconds = e.now().Sub(r.start).Seconds()
	if r.err != nil {
		result.ErrorMessage = r.err.Error()
	}

	if r.dir != "" {
		if err := e.store.SaveResult(r.dir, result); err != nil {
			r.logger.Error("result not saved", zap.Error(err))
		}
		e.reporter.Summarize(r.logger, r.dir, result, r.history.All(), r.lastURL, r.exit)
	}
	e.reporter.Report(r.logger.With(zap.Int("actions", r.history.Len())), result)
	return result
}
