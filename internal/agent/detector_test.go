package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
	"github.com/nbenliogludev/go-workflow-agent/internal/config"
)

func testEngineConfig() config.EngineConfig {
	return config.NewDefaultConfig().Engine
}

func fp(url string, forms, elements, modals int) browser.Fingerprint {
	return browser.Fingerprint{
		CanonicalURL: browser.CanonicalURL(url),
		URL:          url,
		FormCount:    forms,
		ElementCount: elements,
		ModalCount:   modals,
	}
}

func TestIsNewStatePredicates(t *testing.T) {
	base := fp("https://app.example.com/projects", 1, 10, 0)
	withMessage := base
	withMessage.HasMessage = true
	retitled := base
	retitled.Title = "Projects (3)"

	tests := []struct {
		name   string
		cur    browser.Fingerprint
		isNew  bool
		reason string
	}{
		{"same page", base, false, ""},
		{"query string only", fp("https://app.example.com/projects?page=2", 1, 10, 0), false, ""},
		{"url changed", fp("https://app.example.com/settings", 1, 10, 0), true, "url_changed"},
		{"modal opened", fp("https://app.example.com/projects", 1, 10, 1), true, "modal_opened"},
		{"form added", fp("https://app.example.com/projects", 2, 10, 0), true, "structure_changed"},
		{"elements changed", fp("https://app.example.com/projects", 1, 14, 0), true, "structure_changed"},
		{"message appeared", withMessage, true, "message_appeared"},
		{"title only", retitled, false, ""},
		{"url and modal", fp("https://app.example.com/new", 1, 10, 1), true, "url_changed"},
	}

	d := NewDetector(&fingerprints{}, testEngineConfig(), func(time.Duration) {}, zaptest.NewLogger(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isNew, reason := d.IsNewState(&base, tt.cur)
			assert.Equal(t, tt.isNew, isNew)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestIsNewStateModalClosingIsNotNew(t *testing.T) {
	d := NewDetector(&fingerprints{}, testEngineConfig(), func(time.Duration) {}, zaptest.NewLogger(t))
	prev := fp("https://app.example.com/projects", 0, 10, 1)
	isNew, _ := d.IsNewState(&prev, fp("https://app.example.com/projects", 0, 10, 0))
	assert.False(t, isNew)
}

func TestIsNewStateInitialAndDegraded(t *testing.T) {
	d := NewDetector(&fingerprints{}, testEngineConfig(), func(time.Duration) {}, zaptest.NewLogger(t))

	isNew, reason := d.IsNewState(nil, fp("https://app.example.com", 0, 1, 0))
	assert.True(t, isNew)
	assert.Equal(t, "initial", reason)

	prev := fp("https://app.example.com", 0, 1, 0)
	degraded := browser.Fingerprint{CanonicalURL: "https://app.example.com/elsewhere", Degraded: true}
	isNew, _ = d.IsNewState(&prev, degraded)
	assert.False(t, isNew)
}

func TestCheckIsIdempotentUntilConfirmed(t *testing.T) {
	first := fp("https://app.example.com", 0, 5, 0)
	second := fp("https://app.example.com/board", 0, 5, 0)
	src := &fingerprints{seq: []browser.Fingerprint{second}}

	d := NewDetector(src, testEngineConfig(), func(time.Duration) {}, zaptest.NewLogger(t))
	d.Confirm(first)

	_, isNew, reason := d.Check()
	assert.True(t, isNew)
	assert.Equal(t, "url_changed", reason)

	_, isNew, _ = d.Check()
	assert.True(t, isNew, "check must not move the baseline")

	d.Confirm(second)
	_, isNew, _ = d.Check()
	assert.False(t, isNew)
}

func TestStabilizeStopsOnTwoEqualPolls(t *testing.T) {
	a := fp("https://app.example.com", 0, 5, 0)
	b := fp("https://app.example.com", 0, 8, 0)
	src := &fingerprints{seq: []browser.Fingerprint{a, b, b, a}}
	s := &sleeps{}

	cfg := testEngineConfig()
	cfg.StabilizePolls = 5
	d := NewDetector(src, cfg, s.sleep, zaptest.NewLogger(t))

	got := d.Stabilize()
	assert.Equal(t, b, got)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, cfg.SettleDelay+2*cfg.StabilizeInterval, s.total)
}

func TestStabilizeGivesUpAfterPollBudget(t *testing.T) {
	seq := []browser.Fingerprint{
		fp("https://app.example.com", 0, 1, 0),
		fp("https://app.example.com", 0, 2, 0),
		fp("https://app.example.com", 0, 3, 0),
		fp("https://app.example.com", 0, 4, 0),
	}
	src := &fingerprints{seq: seq}

	cfg := testEngineConfig()
	cfg.StabilizePolls = 3
	d := NewDetector(src, cfg, func(time.Duration) {}, zaptest.NewLogger(t))

	got := d.Stabilize()
	assert.Equal(t, seq[2], got)
	assert.Equal(t, 3, src.calls)
}
