package llm

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
)

// PromptLimits bounds how much page context goes into one request.
type PromptLimits struct {
	Elements  int
	History   int
	TextLimit int
}

var DefaultPromptLimits = PromptLimits{Elements: 50, History: 5, TextLimit: 50}

func (l PromptLimits) orDefault() PromptLimits {
	if l.Elements <= 0 {
		l.Elements = DefaultPromptLimits.Elements
	}
	if l.History <= 0 {
		l.History = DefaultPromptLimits.History
	}
	if l.TextLimit <= 0 {
		l.TextLimit = DefaultPromptLimits.TextLimit
	}
	return l
}

const decisionSystemPrompt = `
You are an AI agent helping a user accomplish a task on a web application.
You see a screenshot of the current page and a list of its interactive elements.

Before deciding the next action, ask yourself:
1. Has the user's task been completed?
2. Did the user get what they wanted?
3. Is there a success message, confirmation, or completion indicator visible?

RESPONSE FORMAT:
Respond with a SINGLE JSON object and nothing else:
{
  "action_type": "click" | "type" | "wait" | "scroll" | "done",
  "target_selector": "selector of the element (click and type only)",
  "target_description": "human readable description of the target",
  "value": "text to type (type only)",
  "reasoning": "why. ALWAYS include 'Task complete: YES/NO - <explanation>'",
  "confidence": 0.0-1.0,
  "capture_state": true/false,
  "task_complete": true/false,
  "user_got_what_they_wanted": true/false
}

RULES:
- If the task is complete, set action_type to "done" and both completion flags to true.
- Only use selectors from the element list.
- If you cannot find the right element, set confidence below 0.7 and explain why.
- Set capture_state=true if the action will open a new UI state (modal, form, page).
`

const summarySystemPrompt = `
You are an analysis module for a browser workflow agent.

Produce a concise human-readable report in markdown explaining:
- Whether the task completed
- What the agent did
- Mistakes or loops
- Final state
`

// buildDecisionPrompt renders the per-iteration user message.
func buildDecisionPrompt(input DecisionInput, lim PromptLimits) string {
	lim = lim.orDefault()
	var sb strings.Builder

	if note := hostNote(input.CurrentURL); note != "" {
		sb.WriteString(note + "\n\n")
	}
	sb.WriteString("TASK: " + input.Task + "\n\n")
	sb.WriteString("CURRENT URL: " + input.CurrentURL + "\n\n")
	sb.WriteString("AVAILABLE INTERACTIVE ELEMENTS:\n")
	sb.WriteString(formatElements(input.Elements, lim.Elements, lim.TextLimit) + "\n\n")
	sb.WriteString("PREVIOUS ACTIONS TAKEN:\n")
	sb.WriteString(formatHistory(input.History, lim.History))
	sb.WriteString("\n\nAnalyze the screenshot and the elements and decide the next action.")

	return sb.String()
}

func formatElements(elements []browser.InteractiveElement, max, textLimit int) string {
	if len(elements) == 0 {
		return "No interactive elements found."
	}
	if len(elements) > max {
		elements = elements[:max]
	}

	blocks := make([]string, 0, len(elements))
	for i, el := range elements {
		lines := []string{
			fmt.Sprintf("Element %d:", i+1),
			"  Selector: " + el.Locator,
		}
		if el.Text != "" {
			lines = append(lines, "  Text: "+truncateRunes(el.Text, textLimit))
		}
		if el.AriaLabel != "" {
			lines = append(lines, "  Aria Label: "+el.AriaLabel)
		}
		if el.Role != "" {
			lines = append(lines, "  Role: "+el.Role)
		}
		if el.InputType != "" {
			lines = append(lines, "  Type: "+el.InputType)
		}
		if el.Placeholder != "" {
			lines = append(lines, "  Placeholder: "+el.Placeholder)
		}
		lines = append(lines, fmt.Sprintf("  Enabled: %t", el.Enabled))
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func formatHistory(history []string, max int) string {
	if len(history) == 0 {
		return "None"
	}
	if len(history) > max {
		history = history[len(history)-max:]
	}
	lines := make([]string, len(history))
	for i, h := range history {
		lines[i] = "- " + h
	}
	return strings.Join(lines, "\n")
}

// hostNote tells the model which site it is on and to stay there.
func hostNote(currentURL string) string {
	u, err := url.Parse(currentURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("You are working on the site %s. Do not navigate to other domains or external search engines.",
		strings.ToLower(u.Host))
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
