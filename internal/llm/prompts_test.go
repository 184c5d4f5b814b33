package llm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
)

func TestFormatElementsTruncatesText(t *testing.T) {
	long := strings.Repeat("a", 80)
	out := formatElements([]browser.InteractiveElement{
		{Locator: "#x", Text: long, Role: "button", Enabled: true},
	}, 50, 50)

	assert.Contains(t, out, "Element 1:")
	assert.Contains(t, out, "Selector: #x")
	assert.Contains(t, out, "Text: "+strings.Repeat("a", 50)+"\n")
	assert.Contains(t, out, "Role: button")
	assert.Contains(t, out, "Enabled: true")
	assert.NotContains(t, out, "Placeholder")
}

func TestFormatElementsCapped(t *testing.T) {
	els := make([]browser.InteractiveElement, 70)
	for i := range els {
		els[i] = browser.InteractiveElement{Locator: fmt.Sprintf("#e%d", i)}
	}
	out := formatElements(els, 50, 50)
	assert.Contains(t, out, "Element 50:")
	assert.NotContains(t, out, "Element 51:")

	assert.Equal(t, "No interactive elements found.", formatElements(nil, 50, 50))
}

func TestFormatHistoryKeepsMostRecent(t *testing.T) {
	history := []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	out := formatHistory(history, 5)
	assert.Equal(t, "- a3\n- a4\n- a5\n- a6\n- a7", out)
	assert.Equal(t, "None", formatHistory(nil, 5))
}

func TestBuildDecisionPrompt(t *testing.T) {
	out := buildDecisionPrompt(DecisionInput{
		Task:       "create project",
		CurrentURL: "https://Linear.app/team/projects?x=1",
		History:    []string{"Click New Project"},
	}, PromptLimits{})

	assert.True(t, strings.HasPrefix(out, "You are working on the site linear.app."))
	assert.Contains(t, out, "TASK: create project")
	assert.Contains(t, out, "- Click New Project")
	assert.Contains(t, out, "No interactive elements found.")
}

func TestHostNote(t *testing.T) {
	assert.Empty(t, hostNote(""))
	assert.Empty(t, hostNote("about:blank"))
	assert.Contains(t, hostNote("https://www.notion.so/page"), "www.notion.so")
}
