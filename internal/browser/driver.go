package browser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-workflow-agent/internal/config"
)

const (
	LoadStateLoad             = config.LoadStateLoad
	LoadStateDomcontentloaded = config.LoadStateDomcontentloaded
	LoadStateNetworkidle      = config.LoadStateNetworkidle
)

var (
	// ErrTimeout marks an operation that ran out of time. Callers decide
	// whether that matters.
	ErrTimeout = errors.New("browser operation timed out")
	// ErrClosed is returned by operations on a released session.
	ErrClosed = errors.New("browser session is closed")
)

// Driver is the set of page primitives the workflow core runs on. One Driver
// is one browser session owning exactly one page.
type Driver interface {
	Navigate(url string, timeout time.Duration) error
	Click(locator string, timeout time.Duration) error
	Fill(locator, value string, timeout time.Duration) error
	// EvaluateScript runs a JS function expression such as `() => 1` in the
	// page and returns its JSON-compatible result.
	EvaluateScript(script string) (interface{}, error)
	Screenshot() ([]byte, error)
	CurrentURL() string
	WaitForLoadIdle(timeout time.Duration) error
	AddCookies(cookies []Cookie) error
	Close() error
}

// ScriptClicker is implemented by drivers that can synthesize a click on a
// resolved node without going through page-level script evaluation.
type ScriptClicker interface {
	ScriptClick(locator string, timeout time.Duration) error
}

// Launcher acquires a fresh browser session.
type Launcher interface {
	Launch() (Driver, error)
}

// Cookie is an authentication cookie applied before the first navigation.
type Cookie struct {
	Name     string  `json:"name" yaml:"name"`
	Value    string  `json:"value" yaml:"value"`
	URL      string  `json:"url,omitempty" yaml:"url,omitempty"`
	Domain   string  `json:"domain,omitempty" yaml:"domain,omitempty"`
	Path     string  `json:"path,omitempty" yaml:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty" yaml:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty" yaml:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty" yaml:"secure,omitempty"`
}

// NewLauncher returns the launcher for the configured backend.
func NewLauncher(cfg config.BrowserConfig, logger *zap.Logger) (Launcher, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendPlaywright, "":
		return NewPlaywrightLauncher(cfg, logger), nil
	case config.BackendChromedp:
		return NewCDPLauncher(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported browser backend %q", cfg.Backend)
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
