package browser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const textLocatorPrefix = "text="

// TextLocator builds a text-based locator matching visible text, as both
// backends understand it.
func TextLocator(text string) string {
	return textLocatorPrefix + "'" + strings.ReplaceAll(text, "'", `\'`) + "'"
}

// ParseTextLocator extracts the text from a locator built by TextLocator (or
// written by hand as text="..." / text=...).
func ParseTextLocator(locator string) (string, bool) {
	if !strings.HasPrefix(locator, textLocatorPrefix) {
		return "", false
	}
	text := strings.TrimPrefix(locator, textLocatorPrefix)
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '\'' || first == '"') && first == last {
			text = text[1 : len(text)-1]
			text = strings.ReplaceAll(text, `\`+string(first), string(first))
		}
	}
	return text, true
}

// xpathForText returns an XPath picking the innermost element whose
// normalized text contains text.
func xpathForText(text string) string {
	return fmt.Sprintf(`//*[contains(normalize-space(.), %s) and not(.//*[contains(normalize-space(.), %s)])]`,
		xpathLiteral(text), xpathLiteral(text))
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(quoted, `, '"', `) + ")"
}

// resolveElementJS is a JS expression evaluating to the element a locator
// points at, or null.
func resolveElementJS(locator string) string {
	if text, ok := ParseTextLocator(locator); ok {
		return fmt.Sprintf(`(() => {
			const needle = %s;
			const all = Array.from(document.querySelectorAll('body *'));
			const hits = all.filter(el => (el.innerText || el.textContent || '').replace(/\s+/g, ' ').trim().includes(needle));
			return hits.length ? hits[hits.length - 1] : null;
		})()`, strconv.Quote(text))
	}
	return fmt.Sprintf(`(() => { try { return document.querySelector(%s); } catch (e) { return null; } })()`, strconv.Quote(locator))
}

// ScriptClickJS scrolls the element into view and dispatches a click on it,
// resolving to whether an element was found.
func ScriptClickJS(locator string) string {
	return fmt.Sprintf(`() => {
		const el = %s;
		if (!el) return false;
		el.scrollIntoView({ behavior: 'instant', block: 'center', inline: 'center' });
		el.click();
		return true;
	}`, resolveElementJS(locator))
}

// ScrollByJS scrolls the viewport vertically by offset pixels.
func ScrollByJS(offset int) string {
	return fmt.Sprintf(`() => { window.scrollBy(0, %d); return true; }`, offset)
}

// CanonicalURL strips query and fragment so that two URLs of the same page
// compare equal.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		raw, _, _ = strings.Cut(raw, "#")
		raw, _, _ = strings.Cut(raw, "?")
		return raw
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
