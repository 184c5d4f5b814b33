package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/config"
)

// CDPLauncher starts chromedp-backed sessions.
type CDPLauncher struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func NewCDPLauncher(cfg config.BrowserConfig, logger *zap.Logger) *CDPLauncher {
	return &CDPLauncher{cfg: cfg, logger: logger.Named("chromedp")}
}

func (l *CDPLauncher) Launch() (Driver, error) {
	return NewCDPSession(l.cfg, l.logger)
}

// CDPSession drives one Chrome tab over the DevTools protocol.
type CDPSession struct {
	Ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	cfg    config.BrowserConfig
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewCDPSession(cfg config.BrowserConfig, logger *zap.Logger) (*CDPSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser and attaches to the first tab.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &CDPSession{
		Ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

func (s *CDPSession) run(timeout time.Duration, actions ...chromedp.Action) error {
	if s.isClosed() {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(s.Ctx, timeout)
	defer cancel()
	err := chromedp.Run(ctx, actions...)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// query maps a locator onto a chromedp selector and query option.
func query(locator string) (string, chromedp.QueryOption) {
	if text, ok := ParseTextLocator(locator); ok {
		return xpathForText(text), chromedp.BySearch
	}
	return locator, chromedp.ByQuery
}

// Navigate returns once the load event fired; with the networkidle load
// state it also waits for the body to be ready.
func (s *CDPSession) Navigate(url string, timeout time.Duration) error {
	if err := s.run(timeout, chromedp.Navigate(url)); err != nil {
		return err
	}
	if s.cfg.LoadState == LoadStateNetworkidle {
		return s.WaitForLoadIdle(timeout)
	}
	return nil
}

func (s *CDPSession) Click(locator string, timeout time.Duration) error {
	sel, by := query(locator)
	return s.run(timeout,
		chromedp.ScrollIntoView(sel, by),
		chromedp.Click(sel, by, chromedp.NodeVisible),
	)
}

func (s *CDPSession) Fill(locator, value string, timeout time.Duration) error {
	sel, by := query(locator)
	return s.run(timeout,
		chromedp.WaitVisible(sel, by),
		chromedp.Clear(sel, by),
		chromedp.SendKeys(sel, value, by),
	)
}

// ScriptClick resolves the node and clicks it from inside the page, walking
// up to the nearest clickable ancestor.
func (s *CDPSession) ScriptClick(locator string, timeout time.Duration) error {
	sel, by := query(locator)
	var nodes []*cdp.Node
	return s.run(timeout,
		chromedp.Nodes(sel, &nodes, by, chromedp.AtLeast(0)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("no node matches %q", locator)
			}
			obj, err := dom.ResolveNode().WithBackendNodeID(nodes[0].BackendNodeID).Do(ctx)
			if err != nil {
				return fmt.Errorf("resolve node failed: %w", err)
			}
			if obj == nil || obj.ObjectID == "" {
				return fmt.Errorf("object id is empty (node might be detached)")
			}
			_, exc, err := runtime.CallFunctionOn(nodeClickFunction).WithObjectID(obj.ObjectID).Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return fmt.Errorf("click script threw: %s", exc.Text)
			}
			return nil
		}),
	)
}

const nodeClickFunction = `function() {
	if (this.scrollIntoViewIfNeeded) {
		this.scrollIntoViewIfNeeded();
	} else if (this.scrollIntoView) {
		this.scrollIntoView({ block: "center", inline: "center" });
	}
	const isClickable = (el) => {
		if (!el || !el.tagName) return false;
		const tag = el.tagName.toLowerCase();
		const role = ((el.getAttribute && el.getAttribute("role")) || "").toLowerCase();
		return tag === "button" || tag === "a" || tag === "label" || tag === "input" ||
			role === "button" || role === "link" || role === "menuitem";
	};
	let el = this;
	for (let i = 0; i < 5 && el; i++) {
		if (isClickable(el)) {
			el.click();
			return;
		}
		el = el.parentElement;
	}
	this.click();
}`

func (s *CDPSession) EvaluateScript(script string) (interface{}, error) {
	var res interface{}
	if err := s.run(s.cfg.ActionTimeout, chromedp.Evaluate("("+script+")()", &res)); err != nil {
		return nil, fmt.Errorf("js evaluation failed: %w", err)
	}
	return res, nil
}

func (s *CDPSession) Screenshot() ([]byte, error) {
	var buf []byte
	if err := s.run(s.cfg.NavigationTimeout, chromedp.FullScreenshot(&buf, s.cfg.ScreenshotQuality)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *CDPSession) CurrentURL() string {
	var loc string
	if err := s.run(s.cfg.ActionTimeout, chromedp.Location(&loc)); err != nil {
		s.logger.Debug("location lookup failed", zap.Error(err))
		return ""
	}
	return loc
}

// WaitForLoadIdle waits for the document body to be ready. DevTools has no
// network-idle signal, so this is the closest equivalent.
func (s *CDPSession) WaitForLoadIdle(timeout time.Duration) error {
	return s.run(timeout, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (s *CDPSession) AddCookies(cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	return s.run(s.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.URL != "" {
				p = p.WithURL(c.URL)
			} else {
				path := c.Path
				if path == "" {
					path = "/"
				}
				p = p.WithDomain(c.Domain).WithPath(path)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

func (s *CDPSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close shuts the browser down. Safe to call more than once.
func (s *CDPSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := chromedp.Cancel(s.Ctx)
	s.cancel()
	s.allocCancel()
	return err
}
