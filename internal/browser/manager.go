package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/config"
)

var installOnce sync.Once
var installErr error

// PlaywrightLauncher starts playwright-backed sessions.
type PlaywrightLauncher struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func NewPlaywrightLauncher(cfg config.BrowserConfig, logger *zap.Logger) *PlaywrightLauncher {
	return &PlaywrightLauncher{cfg: cfg, logger: logger.Named("playwright")}
}

func (l *PlaywrightLauncher) Launch() (Driver, error) {
	return NewManager(l.cfg, l.logger)
}

// Manager is one playwright session: driver process, browser context and page.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	Context playwright.BrowserContext
	Page    playwright.Page

	cfg    config.BrowserConfig
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewManager(cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	installOnce.Do(func() {
		installErr = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
	})
	if installErr != nil {
		return nil, fmt.Errorf("install pw failed: %w", installErr)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	m := &Manager{pw: pw, cfg: cfg, logger: logger}
	viewport := &playwright.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}

	if cfg.UserDataDir != "" {
		userDataDir := cfg.UserDataDir
		if !filepath.IsAbs(userDataDir) {
			wd, _ := os.Getwd()
			userDataDir = filepath.Join(wd, userDataDir)
		}
		m.Context, err = pw.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:  playwright.Bool(cfg.Headless),
			Viewport:  viewport,
			UserAgent: playwright.String(cfg.UserAgent),
			Args: []string{
				"--disable-blink-features=AutomationControlled",
			},
		})
	} else {
		m.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(cfg.Headless),
			Args:     []string{"--disable-blink-features=AutomationControlled"},
		})
		if err == nil {
			m.Context, err = m.browser.NewContext(playwright.BrowserNewContextOptions{
				Viewport:  viewport,
				UserAgent: playwright.String(cfg.UserAgent),
			})
		}
	}
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	if pages := m.Context.Pages(); len(pages) > 0 {
		m.Page = pages[0]
	} else {
		m.Page, err = m.Context.NewPage()
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	m.Page.SetDefaultTimeout(millis(cfg.ActionTimeout))
	m.Page.SetDefaultNavigationTimeout(millis(cfg.NavigationTimeout))

	return m, nil
}

func (m *Manager) Navigate(url string, timeout time.Duration) error {
	_, err := m.Page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: gotoWaitUntil(m.cfg.LoadState),
		Timeout:   playwright.Float(millis(timeout)),
	})
	return wrapPlaywrightErr(err)
}

// gotoWaitUntil maps the configured load state onto playwright's option.
func gotoWaitUntil(state string) *playwright.WaitUntilState {
	switch state {
	case LoadStateLoad:
		return playwright.WaitUntilStateLoad
	case LoadStateNetworkidle:
		return playwright.WaitUntilStateNetworkidle
	default:
		return playwright.WaitUntilStateDomcontentloaded
	}
}

func (m *Manager) Click(locator string, timeout time.Duration) error {
	el := m.Page.Locator(locator).First()
	if err := el.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(millis(timeout)),
	}); err != nil {
		return wrapPlaywrightErr(err)
	}
	return wrapPlaywrightErr(el.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(millis(timeout)),
	}))
}

func (m *Manager) Fill(locator, value string, timeout time.Duration) error {
	el := m.Page.Locator(locator).First()
	if err := el.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(millis(timeout)),
	}); err != nil {
		return wrapPlaywrightErr(err)
	}
	return wrapPlaywrightErr(el.Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(millis(timeout)),
	}))
}

func (m *Manager) EvaluateScript(script string) (interface{}, error) {
	res, err := m.Page.Evaluate(script)
	if err != nil {
		return nil, fmt.Errorf("js evaluation failed: %w", err)
	}
	return res, nil
}

func (m *Manager) Screenshot() ([]byte, error) {
	return m.Page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypeJpeg,
		Quality:  playwright.Int(m.cfg.ScreenshotQuality),
	})
}

func (m *Manager) CurrentURL() string {
	return m.Page.URL()
}

func (m *Manager) WaitForLoadIdle(timeout time.Duration) error {
	state := playwright.LoadState(LoadStateNetworkidle)
	return wrapPlaywrightErr(m.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   &state,
		Timeout: playwright.Float(millis(timeout)),
	}))
}

func (m *Manager) AddCookies(cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.URL != "" {
			oc.URL = playwright.String(c.URL)
		} else {
			oc.Domain = playwright.String(c.Domain)
			path := c.Path
			if path == "" {
				path = "/"
			}
			oc.Path = playwright.String(path)
		}
		if c.Expires > 0 {
			oc.Expires = playwright.Float(c.Expires)
		}
		out = append(out, oc)
	}
	return m.Context.AddCookies(out)
}

// Close releases the page, context, browser and driver process. Safe to call
// more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	if m.Context != nil {
		errs = append(errs, m.Context.Close())
	}
	if m.browser != nil {
		errs = append(errs, m.browser.Close())
	}
	if m.pw != nil {
		errs = append(errs, m.pw.Stop())
	}
	return errors.Join(errs...)
}

func wrapPlaywrightErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
