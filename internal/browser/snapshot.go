package browser

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxElements bounds the element list handed to the oracle.
const DefaultMaxElements = 50

// InteractiveElement is one control visible to the oracle. Locators are
// recomputed on every snapshot; nothing carries over between snapshots.
type InteractiveElement struct {
	Locator     string `json:"locator"`
	Text        string `json:"text,omitempty"`
	Tag         string `json:"tag"`
	Role        string `json:"role,omitempty"`
	InputType   string `json:"type,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	AriaLabel   string `json:"ariaLabel,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Fingerprint is the comparable structural summary of a page. Two
// fingerprints are equal iff every field matches.
type Fingerprint struct {
	CanonicalURL string
	URL          string
	Title        string
	FormCount    int
	ElementCount int
	ModalCount   int
	HasMessage   bool
	// Degraded is set when extraction failed and the counts are not real.
	Degraded bool
}

func (f Fingerprint) Equal(other Fingerprint) bool {
	return f == other
}

// FormSummary describes one form in a DOM dump.
type FormSummary struct {
	ID     string         `json:"id,omitempty"`
	Action string         `json:"action,omitempty"`
	Method string         `json:"method,omitempty"`
	Fields []FieldSummary `json:"fields"`
}

type FieldSummary struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// DOMDump is the structural dump persisted next to each screenshot.
type DOMDump struct {
	URL                 string               `json:"url"`
	Title               string               `json:"title"`
	Forms               []FormSummary        `json:"forms"`
	InteractiveElements []InteractiveElement `json:"interactive_elements"`
}

const fingerprintScript = `() => {
	const shown = (el) => {
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden';
	};
	const modalSel = '[role="dialog"], [role="alertdialog"], [aria-modal="true"], .modal, .dialog, [class*="modal"], [class*="dialog"]';
	const messageSel = '[role="alert"], [role="status"], .success, .error, .message, [class*="success"], [class*="error"]';
	const interactiveSel = 'button, a, input, select, textarea, [role="button"], [role="link"]';
	return {
		url: window.location.href,
		title: document.title,
		forms: document.querySelectorAll('form').length,
		elements: document.querySelectorAll(interactiveSel).length,
		modals: Array.from(document.querySelectorAll(modalSel)).filter(shown).length,
		hasMessage: Array.from(document.querySelectorAll(messageSel))
			.some(el => shown(el) && (el.textContent || '').trim().length > 0),
	};
}`

// elementsScriptTemplate walks interactive controls in document order and
// derives a locator for each one. %d is the element cap.
const elementsScriptTemplate = `() => {
	const limit = %d;
	const sel = 'button, a, input, select, textarea, [role="button"], [role="link"], [role="menuitem"], [onclick], [tabindex="0"]';
	const clean = (t) => (t || '').replace(/\s+/g, ' ').trim().slice(0, 100);
	const esc = (v) => (window.CSS && CSS.escape) ? CSS.escape(v) : v.replace(/["\\]/g, '\\$&');
	const cssPath = (el) => {
		const parts = [];
		while (el && el.nodeType === 1 && el !== document.body) {
			let i = 1;
			for (let s = el.previousElementSibling; s; s = s.previousElementSibling) {
				if (s.tagName === el.tagName) i++;
			}
			parts.unshift(el.tagName.toLowerCase() + ':nth-of-type(' + i + ')');
			el = el.parentElement;
		}
		return 'body > ' + parts.join(' > ');
	};
	const locate = (el) => {
		const tag = el.tagName.toLowerCase();
		if (el.id && document.querySelectorAll('#' + esc(el.id)).length === 1) return '#' + esc(el.id);
		const testId = el.getAttribute('data-testid');
		if (testId) return '[data-testid="' + esc(testId) + '"]';
		const name = el.getAttribute('name');
		if (name && document.querySelectorAll(tag + '[name="' + esc(name) + '"]').length === 1) return tag + '[name="' + esc(name) + '"]';
		const aria = el.getAttribute('aria-label');
		if (aria && document.querySelectorAll(tag + '[aria-label="' + esc(aria) + '"]').length === 1) return tag + '[aria-label="' + esc(aria) + '"]';
		return cssPath(el);
	};
	const out = [];
	for (const el of document.querySelectorAll(sel)) {
		if (out.length >= limit) break;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		if (rect.width <= 0 || rect.height <= 0 || style.visibility === 'hidden' || style.display === 'none') continue;
		out.push({
			locator: locate(el),
			text: clean(el.innerText || el.textContent || el.value || el.placeholder),
			tag: el.tagName.toLowerCase(),
			role: el.getAttribute('role') || '',
			type: el.getAttribute('type') || '',
			placeholder: el.getAttribute('placeholder') || '',
			ariaLabel: el.getAttribute('aria-label') || '',
			enabled: !el.disabled,
		});
	}
	return out;
}`

const domDumpScript = `() => ({
	url: window.location.href,
	title: document.title,
	forms: Array.from(document.querySelectorAll('form')).map(f => ({
		id: f.id || '',
		action: f.getAttribute('action') || '',
		method: f.getAttribute('method') || '',
		fields: Array.from(f.querySelectorAll('input, select, textarea')).map(inp => ({
			type: inp.type || inp.tagName.toLowerCase(),
			name: inp.name || '',
			id: inp.id || '',
			placeholder: inp.placeholder || '',
		})),
	})),
	interactive_elements: Array.from(document.querySelectorAll(
		'button, a, input, select, textarea, [role="button"], [role="link"]'
	)).map(el => ({
		locator: el.id ? '#' + el.id : '',
		tag: el.tagName.toLowerCase(),
		text: (el.textContent || el.value || el.placeholder || '').replace(/\s+/g, ' ').trim().slice(0, 100),
		role: el.getAttribute('role') || '',
		enabled: !el.disabled,
	})),
})`

type fingerprintPayload struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Forms      int    `json:"forms"`
	Elements   int    `json:"elements"`
	Modals     int    `json:"modals"`
	HasMessage bool   `json:"hasMessage"`
}

// Snapshotter extracts fingerprints and element lists from the session's
// page. It never fails: extraction errors degrade to empty values.
type Snapshotter struct {
	drv         Driver
	logger      *zap.Logger
	maxElements int
	lastURL     string
}

func NewSnapshotter(drv Driver, maxElements int, logger *zap.Logger) *Snapshotter {
	if maxElements <= 0 || maxElements > DefaultMaxElements {
		maxElements = DefaultMaxElements
	}
	return &Snapshotter{drv: drv, logger: logger, maxElements: maxElements}
}

// Fingerprint summarizes the current page. On failure it returns a degraded
// fingerprint with zero counts and the last known URL.
func (s *Snapshotter) Fingerprint() (fp Fingerprint) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("fingerprint extraction panicked", zap.Any("panic", r))
			fp = s.degraded()
		}
	}()

	var p fingerprintPayload
	if err := s.evaluateInto(fingerprintScript, &p); err != nil {
		s.logger.Debug("fingerprint extraction failed", zap.Error(err))
		return s.degraded()
	}

	s.lastURL = p.URL
	return Fingerprint{
		CanonicalURL: CanonicalURL(p.URL),
		URL:          p.URL,
		Title:        p.Title,
		FormCount:    p.Forms,
		ElementCount: p.Elements,
		ModalCount:   p.Modals,
		HasMessage:   p.HasMessage,
	}
}

func (s *Snapshotter) degraded() Fingerprint {
	url := s.lastURL
	if url == "" {
		url = s.currentURL()
	}
	return Fingerprint{CanonicalURL: CanonicalURL(url), URL: url, Degraded: true}
}

func (s *Snapshotter) currentURL() (url string) {
	defer func() {
		if r := recover(); r != nil {
			url = ""
		}
	}()
	return s.drv.CurrentURL()
}

// InteractiveElements lists visible controls in document order, capped at
// the configured maximum. Returns an empty list on failure.
func (s *Snapshotter) InteractiveElements() (elements []InteractiveElement) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("element extraction panicked", zap.Any("panic", r))
			elements = []InteractiveElement{}
		}
	}()

	var out []InteractiveElement
	if err := s.evaluateInto(fmt.Sprintf(elementsScriptTemplate, s.maxElements), &out); err != nil {
		s.logger.Debug("element extraction failed", zap.Error(err))
		return []InteractiveElement{}
	}
	if len(out) > s.maxElements {
		out = out[:s.maxElements]
	}
	if out == nil {
		out = []InteractiveElement{}
	}
	return out
}

// DOMDump captures the structural dump stored alongside a screenshot.
func (s *Snapshotter) DOMDump() (dump *DOMDump, err error) {
	defer func() {
		if r := recover(); r != nil {
			dump, err = nil, fmt.Errorf("dom dump panicked: %v", r)
		}
	}()

	var d DOMDump
	if err := s.evaluateInto(domDumpScript, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// evaluateInto runs script and decodes its result into out. Backends hand
// back different Go shapes for the same JS value, so the result is
// round-tripped through JSON.
func (s *Snapshotter) evaluateInto(script string, out interface{}) error {
	raw, err := s.drv.EvaluateScript(script)
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("script returned no value")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode script result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode script result: %w", err)
	}
	return nil
}
