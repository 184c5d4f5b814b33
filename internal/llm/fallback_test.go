package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
)

func TestAlternativeLocatorPicksFirstTextElement(t *testing.T) {
	els := []browser.InteractiveElement{
		{Locator: "#icon"},
		{Locator: "#a", Text: "   "},
		{Locator: "#b", Text: "Create issue"},
		{Locator: "#c", Text: "Cancel"},
	}
	alt, ok := AlternativeLocator("#missing", els)
	assert.True(t, ok)
	assert.Equal(t, "text='Create issue'", alt)
}

func TestAlternativeLocatorTruncates(t *testing.T) {
	els := []browser.InteractiveElement{{Locator: "#a", Text: strings.Repeat("x", 45)}}
	alt, ok := AlternativeLocator("#missing", els)
	assert.True(t, ok)
	assert.Equal(t, "text='"+strings.Repeat("x", 30)+"'", alt)
}

func TestAlternativeLocatorNone(t *testing.T) {
	_, ok := AlternativeLocator("#missing", []browser.InteractiveElement{{Locator: "#a"}})
	assert.False(t, ok)

	_, ok = AlternativeLocator("#missing", nil)
	assert.False(t, ok)
}
