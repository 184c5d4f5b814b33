package agent

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
	"github.com/nbenliogludev/go-workflow-agent/internal/llm"
)

// fakePage is a scripted page: the fields are what the in-page scripts would
// report, and click handlers mutate them the way a real app would.
type fakePage struct {
	mu sync.Mutex

	url        string
	title      string
	forms      int
	elements   int
	modals     int
	hasMessage bool
	controls   []browser.InteractiveElement

	onClick     map[string]func(p *fakePage) error
	fillErrs    map[string]error
	scriptClick bool
	navigateErr error
	shotErr     error
	evalErr     error
	closeErr    error

	clicks      []string
	fills       []string
	navigations []string
	closes      int
	cookies     []browser.Cookie
}

func newFakePage(url string) *fakePage {
	return &fakePage{
		url:      url,
		title:    "Home",
		elements: 3,
		controls: []browser.InteractiveElement{
			{Locator: "#new", Text: "New project", Tag: "button", Enabled: true},
			{Locator: "#settings", Text: "Settings", Tag: "a", Enabled: true},
		},
		onClick: map[string]func(p *fakePage) error{},
	}
}

func (p *fakePage) Navigate(url string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	if p.navigateErr != nil {
		return p.navigateErr
	}
	p.url = url
	return nil
}

func (p *fakePage) Click(locator string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, locator)
	h, ok := p.onClick[locator]
	if !ok {
		return browser.ErrTimeout
	}
	return h(p)
}

func (p *fakePage) Fill(locator, value string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fills = append(p.fills, locator+"="+value)
	return p.fillErrs[locator]
}

func (p *fakePage) EvaluateScript(script string) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.evalErr != nil {
		return nil, p.evalErr
	}
	switch {
	case strings.Contains(script, "modalSel"):
		return map[string]interface{}{
			"url":        p.url,
			"title":      p.title,
			"forms":      float64(p.forms),
			"elements":   float64(p.elements),
			"modals":     float64(p.modals),
			"hasMessage": p.hasMessage,
		}, nil
	case strings.Contains(script, "const limit ="):
		out := make([]interface{}, 0, len(p.controls))
		for _, c := range p.controls {
			out = append(out, map[string]interface{}{
				"locator": c.Locator,
				"text":    c.Text,
				"tag":     c.Tag,
				"enabled": c.Enabled,
			})
		}
		return out, nil
	case strings.Contains(script, "interactive_elements"):
		return map[string]interface{}{
			"url":   p.url,
			"title": p.title,
		}, nil
	case strings.Contains(script, "scrollBy"):
		return true, nil
	case strings.Contains(script, "el.click()"):
		return p.scriptClick, nil
	}
	return nil, errors.New("unexpected script")
}

func (p *fakePage) Screenshot() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	return []byte("jpeg:" + p.url), nil
}

func (p *fakePage) CurrentURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) WaitForLoadIdle(timeout time.Duration) error { return nil }

func (p *fakePage) AddCookies(cookies []browser.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = append(p.cookies, cookies...)
	return nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return p.closeErr
}

func (p *fakePage) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

type fakeLauncher struct {
	page *fakePage
	err  error
}

func (l *fakeLauncher) Launch() (browser.Driver, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.page, nil
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) DecideAction(input llm.DecisionInput) (*llm.ActionDecision, error) {
	args := m.Called(input)
	d, _ := args.Get(0).(*llm.ActionDecision)
	return d, args.Error(1)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) SummarizeRun(input llm.SummaryInput) (string, error) {
	args := m.Called(input)
	return args.String(0), args.Error(1)
}

type mockDriver struct {
	mock.Mock
}

func (m *mockDriver) Navigate(url string, timeout time.Duration) error {
	return m.Called(url, timeout).Error(0)
}

func (m *mockDriver) Click(locator string, timeout time.Duration) error {
	return m.Called(locator, timeout).Error(0)
}

func (m *mockDriver) Fill(locator, value string, timeout time.Duration) error {
	return m.Called(locator, value, timeout).Error(0)
}

func (m *mockDriver) EvaluateScript(script string) (interface{}, error) {
	args := m.Called(script)
	return args.Get(0), args.Error(1)
}

func (m *mockDriver) Screenshot() ([]byte, error) {
	args := m.Called()
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockDriver) CurrentURL() string { return m.Called().String(0) }

func (m *mockDriver) WaitForLoadIdle(timeout time.Duration) error {
	return m.Called(timeout).Error(0)
}

func (m *mockDriver) AddCookies(cookies []browser.Cookie) error {
	return m.Called(cookies).Error(0)
}

func (m *mockDriver) Close() error { return m.Called().Error(0) }

// scriptClickDriver adds ScriptClick on top of the mock.
type scriptClickDriver struct {
	mockDriver
}

func (m *scriptClickDriver) ScriptClick(locator string, timeout time.Duration) error {
	return m.Called(locator, timeout).Error(0)
}

// fingerprints replays a fixed sequence, repeating the last entry.
type fingerprints struct {
	seq   []browser.Fingerprint
	calls int
}

func (f *fingerprints) Fingerprint() browser.Fingerprint {
	i := f.calls
	if i >= len(f.seq) {
		i = len(f.seq) - 1
	}
	f.calls++
	return f.seq[i]
}

// sleeps records requested pauses without pausing.
type sleeps struct {
	mu    sync.Mutex
	total time.Duration
	count int
}

func (s *sleeps) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total += d
	s.count++
}

func decision(kind llm.ActionKind, target string) *llm.ActionDecision {
	return &llm.ActionDecision{
		Kind:         kind,
		Target:       target,
		Confidence:   0.9,
		CaptureState: true,
		Reasoning:    "test",
	}
}

func done() *llm.ActionDecision {
	d := decision(llm.ActionDone, "")
	d.TaskComplete = true
	return d
}
