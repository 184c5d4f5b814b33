package llm

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedDecision is returned by ParseDecision for payloads that are not
// JSON or violate the decision schema.
var ErrMalformedDecision = errors.New("malformed oracle decision")

// rawDecision mirrors the wire payload. Pointers distinguish "missing" from
// zero so defaults can be applied.
type rawDecision struct {
	ActionType        string   `json:"action_type"`
	Action            string   `json:"action"`
	TargetSelector    string   `json:"target_selector"`
	Target            string   `json:"target"`
	TargetDescription string   `json:"target_description"`
	Value             *string  `json:"value"`
	Reasoning         string   `json:"reasoning"`
	Confidence        *float64 `json:"confidence"`
	CaptureState      *bool    `json:"capture_state"`
	TaskComplete      *bool    `json:"task_complete"`
	UserSatisfied     *bool    `json:"user_got_what_they_wanted"`
}

var kindAliases = map[string]ActionKind{
	"finish":      ActionDone,
	"complete":    ActionDone,
	"scroll_down": ActionScroll,
	"fill":        ActionType,
	"input":       ActionType,
	"type_text":   ActionType,
	"press":       ActionClick,
	"sleep":       ActionWait,
}

// SafeDecision is the decision substituted for anything the oracle got
// wrong: wait, zero confidence, not complete.
func SafeDecision(reason string) *ActionDecision {
	return &ActionDecision{
		Kind:       ActionWait,
		Reasoning:  reason,
		Confidence: 0,
	}
}

// ParseDecision validates an oracle reply into an ActionDecision.
func ParseDecision(content string) (*ActionDecision, error) {
	body := extractJSON(content)
	if body == "" {
		return nil, fmt.Errorf("%w: no json object in response", ErrMalformedDecision)
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}

	kindStr := raw.ActionType
	if kindStr == "" {
		kindStr = raw.Action
	}
	kind := normalizeKind(kindStr)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown action type %q", ErrMalformedDecision, kindStr)
	}

	d := &ActionDecision{
		Kind:              kind,
		Target:            firstNonEmpty(raw.TargetSelector, raw.Target),
		TargetDescription: raw.TargetDescription,
		Reasoning:         raw.Reasoning,
		Confidence:        1.0,
		CaptureState:      true,
	}
	if raw.Value != nil {
		d.Value = *raw.Value
	}
	if kind == ActionType && strings.TrimSpace(d.Value) == "" {
		return nil, fmt.Errorf("%w: type action without value", ErrMalformedDecision)
	}

	if raw.Confidence != nil {
		if *raw.Confidence < 0 || *raw.Confidence > 1 {
			return nil, fmt.Errorf("%w: confidence %.2f outside [0,1]", ErrMalformedDecision, *raw.Confidence)
		}
		d.Confidence = *raw.Confidence
	}
	if raw.CaptureState != nil {
		d.CaptureState = *raw.CaptureState
	}

	if raw.TaskComplete != nil {
		d.TaskComplete = *raw.TaskComplete
	} else {
		d.TaskComplete = kind == ActionDone
	}
	if raw.UserSatisfied != nil {
		d.UserSatisfied = *raw.UserSatisfied
	} else {
		d.UserSatisfied = d.TaskComplete
	}

	return d, nil
}

func normalizeKind(s string) ActionKind {
	s = strings.ToLower(strings.TrimSpace(s))
	if alias, ok := kindAliases[s]; ok {
		return alias
	}
	return ActionKind(s)
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost JSON object.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
