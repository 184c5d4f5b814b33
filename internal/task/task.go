package task

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/nbenliogludev/go-workflow-agent/internal/browser"
)

// ErrNoBaseURL is returned when neither the task nor the registry supplies a
// starting URL.
var ErrNoBaseURL = errors.New("no base URL available")

// Task is one unit of work handed to the engine.
type Task struct {
	App         string           `yaml:"app" json:"app"`
	Description string           `yaml:"task" json:"task_description"`
	BaseURL     string           `yaml:"url,omitempty" json:"base_url,omitempty"`
	AuthCookies []browser.Cookie `yaml:"cookies,omitempty" json:"auth_cookies,omitempty"`
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.App) == "" {
		return fmt.Errorf("task app is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("task description is required")
	}
	return nil
}

// App is one entry of apps.yaml.
type App struct {
	BaseURL string `yaml:"base_url"`
	Name    string `yaml:"name,omitempty"`
}

// Registry resolves app names to base URLs.
type Registry struct {
	apps map[string]App
}

type registryFile struct {
	Apps map[string]App `yaml:"apps"`
}

// LoadRegistry reads apps.yaml. A missing file yields an empty registry so
// tasks carrying their own URL still work.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewRegistry(nil), nil
		}
		return nil, fmt.Errorf("read app registry: %w", err)
	}
	return ParseRegistry(data)
}

func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse app registry: %w", err)
	}
	return NewRegistry(f.Apps), nil
}

func NewRegistry(apps map[string]App) *Registry {
	r := &Registry{apps: make(map[string]App, len(apps))}
	for name, app := range apps {
		r.apps[strings.ToLower(name)] = app
	}
	return r
}

// BaseURL returns the task's own URL if set, otherwise the registry's.
func (r *Registry) BaseURL(t Task) (string, error) {
	if u := strings.TrimSpace(t.BaseURL); u != "" {
		return u, nil
	}
	if r != nil {
		if app, ok := r.apps[strings.ToLower(t.App)]; ok && app.BaseURL != "" {
			return app.BaseURL, nil
		}
	}
	if r == nil || len(r.apps) == 0 {
		return "", fmt.Errorf("%w for app %q (no apps registered)", ErrNoBaseURL, t.App)
	}
	return "", fmt.Errorf("%w for app %q (registered: %s)", ErrNoBaseURL, t.App, strings.Join(r.Apps(), ", "))
}

// Apps lists registered app names in order.
func (r *Registry) Apps() []string {
	out := make([]string, 0, len(r.apps))
	for name := range r.apps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type batchFile struct {
	Tasks []Task `yaml:"tasks"`
}

// LoadBatch reads a yaml file with a top level tasks: list.
func LoadBatch(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("batch file %s has no tasks", path)
	}
	for i, t := range f.Tasks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
	}
	return f.Tasks, nil
}

// LoadCookies reads a JSON array of cookies, as exported by browser
// devtools or playwright's storage state.
func LoadCookies(path string) ([]browser.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	var cookies []browser.Cookie
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("parse cookies: %w", err)
	}
	return cookies, nil
}
