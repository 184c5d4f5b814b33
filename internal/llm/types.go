package llm

import (
	"fmt"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
)

// ActionKind is the closed set of actions the oracle may choose.
type ActionKind string

const (
	ActionClick  ActionKind = "click"
	ActionType   ActionKind = "type"
	ActionWait   ActionKind = "wait"
	ActionScroll ActionKind = "scroll"
	ActionDone   ActionKind = "done"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionClick, ActionType, ActionWait, ActionScroll, ActionDone:
		return true
	}
	return false
}

// NeedsTarget reports whether the kind acts on an element.
func (k ActionKind) NeedsTarget() bool {
	return k == ActionClick || k == ActionType
}

// ActionDecision is one validated oracle answer. Only the target may be
// replaced after the fact, via WithTarget.
type ActionDecision struct {
	Kind              ActionKind `json:"action_type"`
	Target            string     `json:"target_selector,omitempty"`
	TargetDescription string     `json:"target_description,omitempty"`
	Value             string     `json:"value,omitempty"`
	Reasoning         string     `json:"reasoning"`
	Confidence        float64    `json:"confidence"`
	CaptureState      bool       `json:"capture_state"`
	TaskComplete      bool       `json:"task_complete"`
	UserSatisfied     bool       `json:"user_got_what_they_wanted"`
}

// Complete reports whether any of the three completion signals is set.
func (d *ActionDecision) Complete() bool {
	return d.Kind == ActionDone || d.TaskComplete || d.UserSatisfied
}

// WithTarget returns a copy of d pointing at a different locator.
func (d ActionDecision) WithTarget(locator string) ActionDecision {
	d.Target = locator
	return d
}

// Describe renders the decision as a history line.
func (d *ActionDecision) Describe() string {
	what := d.TargetDescription
	if what == "" {
		what = d.Target
	}
	switch d.Kind {
	case ActionClick:
		return fmt.Sprintf("Click %s", what)
	case ActionType:
		return fmt.Sprintf("Type '%s' into %s", d.Value, what)
	case ActionWait:
		return "Wait for page to load"
	case ActionScroll:
		return "Scroll down"
	default:
		return string(d.Kind)
	}
}

type DecisionInput struct {
	Task       string
	Image      []byte // JPEG of the most recent captured state
	Elements   []browser.InteractiveElement
	History    []string // most recent last
	CurrentURL string
}

// Client is the decision oracle. Implementations never return a malformed
// decision: bad payloads are replaced by SafeDecision at the boundary.
type Client interface {
	DecideAction(input DecisionInput) (*ActionDecision, error)
}

type SummaryInput struct {
	Task       string
	App        string
	ExitReason string
	FinalURL   string
	Duration   string
	Steps      []string
	States     int
}

// Summarizer writes a human readable report of a finished run.
type Summarizer interface {
	SummarizeRun(input SummaryInput) (string, error)
}
