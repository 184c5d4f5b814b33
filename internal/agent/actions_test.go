package agent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/nbenliogludev/go-workflow-agent/internal/config"
	"github.com/nbenliogludev/go-workflow-agent/internal/llm"
)

func newTestDispatcher(t *testing.T, drv *mockDriver, s *sleeps) *Dispatcher {
	cfg := config.NewDefaultConfig()
	if s == nil {
		s = &sleeps{}
	}
	return NewDispatcher(drv, cfg.Browser, cfg.Engine, s.sleep, zaptest.NewLogger(t))
}

func TestDispatcherClickDirect(t *testing.T) {
	drv := new(mockDriver)
	drv.On("Click", "#save", 5*time.Second).Return(nil).Once()

	ok := newTestDispatcher(t, drv, nil).Execute(*decision(llm.ActionClick, "#save"))
	assert.True(t, ok)
	drv.AssertExpectations(t)
}

func TestDispatcherClickFallsBackToScript(t *testing.T) {
	drv := new(mockDriver)
	drv.On("Click", "#save", mock.Anything).Return(errors.New("element is covered")).Once()
	drv.On("EvaluateScript", mock.MatchedBy(func(s string) bool { return len(s) > 0 })).Return(true, nil).Once()

	ok := newTestDispatcher(t, drv, nil).Execute(*decision(llm.ActionClick, "#save"))
	assert.True(t, ok)
	drv.AssertExpectations(t)
}

func TestDispatcherScriptClickNoMatch(t *testing.T) {
	drv := new(mockDriver)
	drv.On("Click", "#gone", mock.Anything).Return(errors.New("timeout")).Once()
	drv.On("EvaluateScript", mock.Anything).Return(false, nil).Once()

	assert.False(t, newTestDispatcher(t, drv, nil).Execute(*decision(llm.ActionClick, "#gone")))
}

func TestDispatcherPrefersScriptClicker(t *testing.T) {
	drv := new(scriptClickDriver)
	drv.On("Click", "#save", mock.Anything).Return(errors.New("covered")).Once()
	drv.On("ScriptClick", "#save", mock.Anything).Return(nil).Once()

	cfg := config.NewDefaultConfig()
	d := NewDispatcher(drv, cfg.Browser, cfg.Engine, func(time.Duration) {}, zaptest.NewLogger(t))

	assert.True(t, d.Execute(*decision(llm.ActionClick, "#save")))
	drv.AssertNotCalled(t, "EvaluateScript", mock.Anything)
	drv.AssertExpectations(t)
}

func TestDispatcherPanicInDirectClickStillTriesScript(t *testing.T) {
	drv := new(mockDriver)
	drv.On("Click", "#save", mock.Anything).Run(func(mock.Arguments) { panic("driver crashed") }).Return(nil).Once()
	drv.On("EvaluateScript", mock.Anything).Return(true, nil).Once()

	assert.True(t, newTestDispatcher(t, drv, nil).Execute(*decision(llm.ActionClick, "#save")))
}

func TestDispatcherType(t *testing.T) {
	drv := new(mockDriver)
	drv.On("Fill", "input[name=\"title\"]", "Launch", mock.Anything).Return(nil).Once()

	d := decision(llm.ActionType, "input[name=\"title\"]")
	d.Value = "Launch"
	assert.True(t, newTestDispatcher(t, drv, nil).Execute(*d))
	drv.AssertExpectations(t)
}

func TestDispatcherRejectsIncompleteDecisions(t *testing.T) {
	drv := new(mockDriver)
	disp := newTestDispatcher(t, drv, nil)

	assert.False(t, disp.Execute(*decision(llm.ActionClick, "")))
	assert.False(t, disp.Execute(*decision(llm.ActionType, "#title")))
	assert.False(t, disp.Execute(*decision("hover", "#title")))
	drv.AssertNotCalled(t, "Click", mock.Anything, mock.Anything)
	drv.AssertNotCalled(t, "Fill", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcherWaitScrollDone(t *testing.T) {
	drv := new(mockDriver)
	drv.On("EvaluateScript", "() => { window.scrollBy(0, 500); return true; }").Return(nil, errors.New("detached")).Once()
	s := &sleeps{}
	disp := newTestDispatcher(t, drv, s)

	assert.True(t, disp.Execute(*decision(llm.ActionWait, "")))
	assert.Equal(t, 2*time.Second, s.total)

	assert.True(t, disp.Execute(*decision(llm.ActionScroll, "")), "scroll errors are ignored")
	assert.True(t, disp.Execute(*decision(llm.ActionDone, "")))
	drv.AssertExpectations(t)
}
