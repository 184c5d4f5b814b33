package agent

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
	"github.com/nbenliogludev/go-workflow-agent/internal/config"
	"github.com/nbenliogludev/go-workflow-agent/internal/llm"
)

// strategy is one way of carrying out a decision. A kind may have several,
// tried in order until one succeeds.
type strategy struct {
	name string
	run  func(d llm.ActionDecision) error
}

// Dispatcher turns decisions into page operations. It never lets a driver
// fault escape: every failure comes back as false.
type Dispatcher struct {
	drv    browser.Driver
	table  map[llm.ActionKind][]strategy
	logger *zap.Logger

	actionTimeout time.Duration
	waitPause     time.Duration
	scrollOffset  int
	sleep         func(time.Duration)
}

func NewDispatcher(drv browser.Driver, browserCfg config.BrowserConfig, engineCfg config.EngineConfig, sleep func(time.Duration), logger *zap.Logger) *Dispatcher {
	if sleep == nil {
		sleep = time.Sleep
	}
	d := &Dispatcher{
		drv:           drv,
		logger:        logger.Named("dispatcher"),
		actionTimeout: browserCfg.ActionTimeout,
		waitPause:     engineCfg.WaitPause,
		scrollOffset:  engineCfg.ScrollOffset,
		sleep:         sleep,
	}
	d.table = map[llm.ActionKind][]strategy{
		llm.ActionClick: {
			{name: "direct", run: d.clickDirect},
			{name: "script", run: d.clickScript},
		},
		llm.ActionType:   {{name: "fill", run: d.fill}},
		llm.ActionWait:   {{name: "pause", run: d.wait}},
		llm.ActionScroll: {{name: "scroll", run: d.scroll}},
		llm.ActionDone:   {{name: "noop", run: func(llm.ActionDecision) error { return nil }}},
	}
	return d
}

// Execute runs the strategies for the decision's kind and reports whether
// one of them succeeded.
func (d *Dispatcher) Execute(decision llm.ActionDecision) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("action panicked", zap.String("kind", string(decision.Kind)), zap.Any("panic", r))
			ok = false
		}
	}()

	strategies, known := d.table[decision.Kind]
	if !known {
		d.logger.Warn("no strategy for action", zap.String("kind", string(decision.Kind)))
		return false
	}
	if decision.Kind.NeedsTarget() && decision.Target == "" {
		d.logger.Debug("action has no target", zap.String("kind", string(decision.Kind)))
		return false
	}
	if decision.Kind == llm.ActionType && decision.Value == "" {
		d.logger.Debug("type action has no value", zap.String("target", decision.Target))
		return false
	}

	for _, s := range strategies {
		err := runStrategy(s, decision)
		if err == nil {
			d.logger.Debug("action executed",
				zap.String("kind", string(decision.Kind)),
				zap.String("strategy", s.name),
				zap.String("target", decision.Target))
			return true
		}
		d.logger.Info("action strategy failed",
			zap.String("kind", string(decision.Kind)),
			zap.String("strategy", s.name),
			zap.String("target", decision.Target),
			zap.Error(err))
	}
	return false
}

func runStrategy(s strategy, decision llm.ActionDecision) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.run(decision)
}

func (d *Dispatcher) clickDirect(decision llm.ActionDecision) error {
	return d.drv.Click(decision.Target, d.actionTimeout)
}

// clickScript scrolls the target into view and clicks it from inside the
// page, which gets past overlays that intercept pointer events.
func (d *Dispatcher) clickScript(decision llm.ActionDecision) error {
	if sc, ok := d.drv.(browser.ScriptClicker); ok {
		return sc.ScriptClick(decision.Target, d.actionTimeout)
	}
	res, err := d.drv.EvaluateScript(browser.ScriptClickJS(decision.Target))
	if err != nil {
		return err
	}
	if clicked, _ := res.(bool); !clicked {
		return fmt.Errorf("no element matches %q", decision.Target)
	}
	return nil
}

func (d *Dispatcher) fill(decision llm.ActionDecision) error {
	return d.drv.Fill(decision.Target, decision.Value, d.actionTimeout)
}

func (d *Dispatcher) wait(llm.ActionDecision) error {
	d.sleep(d.waitPause)
	return nil
}

func (d *Dispatcher) scroll(llm.ActionDecision) error {
	if _, err := d.drv.EvaluateScript(browser.ScrollByJS(d.scrollOffset)); err != nil {
		d.logger.Debug("scroll script failed", zap.Error(err))
	}
	return nil
}
