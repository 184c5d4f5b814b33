package llm

import (
	"strings"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
)

const fallbackTextLimit = 30

// AlternativeLocator proposes a replacement for a locator that failed: the
// first element with visible text, as a text locator. It does not look at
// the failed locator at all.
func AlternativeLocator(_ string, elements []browser.InteractiveElement) (string, bool) {
	for _, el := range elements {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		return browser.TextLocator(truncateRunes(text, fallbackTextLimit)), true
	}
	return "", false
}
