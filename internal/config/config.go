package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendPlaywright = "playwright"
	BackendChromedp   = "chromedp"
)

// Page load states a navigation can wait for.
const (
	LoadStateLoad             = "load"
	LoadStateDomcontentloaded = "domcontentloaded"
	LoadStateNetworkidle      = "networkidle"
)

// Config is the full application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Oracle  OracleConfig  `mapstructure:"oracle" yaml:"oracle"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Dataset DatasetConfig `mapstructure:"dataset" yaml:"dataset"`
	Apps    AppsConfig    `mapstructure:"apps" yaml:"apps"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig selects the driver backend and its launch settings.
type BrowserConfig struct {
	Backend           string        `mapstructure:"backend" yaml:"backend"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	UserDataDir       string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	LoadIdleTimeout   time.Duration `mapstructure:"load_idle_timeout" yaml:"load_idle_timeout"`
	LoadState         string        `mapstructure:"load_state" yaml:"load_state"`
	ScreenshotQuality int           `mapstructure:"screenshot_quality" yaml:"screenshot_quality"`
}

// OracleConfig configures the vision model that decides each action.
type OracleConfig struct {
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxImageBytes     int           `mapstructure:"max_image_bytes" yaml:"max_image_bytes"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	Summarize         bool          `mapstructure:"summarize" yaml:"summarize"`
}

// EngineConfig bounds and paces the workflow loop.
type EngineConfig struct {
	MaxIterations          int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	LowConfidenceThreshold float64       `mapstructure:"low_confidence_threshold" yaml:"low_confidence_threshold"`
	MaxElements            int           `mapstructure:"max_elements" yaml:"max_elements"`
	HistorySize            int           `mapstructure:"history_size" yaml:"history_size"`
	ElementTextLimit       int           `mapstructure:"element_text_limit" yaml:"element_text_limit"`
	IterationPause         time.Duration `mapstructure:"iteration_pause" yaml:"iteration_pause"`
	WaitPause              time.Duration `mapstructure:"wait_pause" yaml:"wait_pause"`
	ScrollOffset           int           `mapstructure:"scroll_offset" yaml:"scroll_offset"`
	StabilizeInterval      time.Duration `mapstructure:"stabilize_interval" yaml:"stabilize_interval"`
	StabilizePolls         int           `mapstructure:"stabilize_polls" yaml:"stabilize_polls"`
	SettleDelay            time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// DatasetConfig points at the append-only dataset directory.
type DatasetConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

// AppsConfig locates the app registry used to resolve base URLs.
type AppsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// BatchConfig bounds concurrent runs started by the batch command.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "workflow-agent")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.backend", BackendPlaywright)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.user_data_dir", ".playwright_data")
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "5s")
	v.SetDefault("browser.load_idle_timeout", "5s")
	v.SetDefault("browser.load_state", LoadStateDomcontentloaded)
	v.SetDefault("browser.screenshot_quality", 85)

	// -- Oracle --
	v.SetDefault("oracle.model", "gpt-4o")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.timeout", "60s")
	v.SetDefault("oracle.max_tokens", 1000)
	v.SetDefault("oracle.temperature", 0)
	v.SetDefault("oracle.max_image_bytes", 4*1024*1024)
	v.SetDefault("oracle.requests_per_minute", 20)
	v.SetDefault("oracle.max_retries", 5)
	v.SetDefault("oracle.summarize", false)

	// -- Engine --
	v.SetDefault("engine.max_iterations", 10)
	v.SetDefault("engine.low_confidence_threshold", 0.7)
	v.SetDefault("engine.max_elements", 50)
	v.SetDefault("engine.history_size", 5)
	v.SetDefault("engine.element_text_limit", 50)
	v.SetDefault("engine.iteration_pause", "500ms")
	v.SetDefault("engine.wait_pause", "2s")
	v.SetDefault("engine.scroll_offset", 500)
	v.SetDefault("engine.stabilize_interval", "200ms")
	v.SetDefault("engine.stabilize_polls", 5)
	v.SetDefault("engine.settle_delay", "500ms")

	// -- Dataset / Apps / Batch --
	v.SetDefault("dataset.root", "datasets")
	v.SetDefault("apps.file", "apps.yaml")
	v.SetDefault("batch.concurrency", 2)
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	_ = v.BindEnv("oracle.api_key", "OPENAI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine configuration invalid: %w", err)
	}
	if c.Oracle.MaxImageBytes <= 0 {
		return fmt.Errorf("oracle.max_image_bytes must be a positive integer")
	}
	if c.Oracle.RequestsPerMinute <= 0 {
		return fmt.Errorf("oracle.requests_per_minute must be positive")
	}
	if c.Dataset.Root == "" {
		return fmt.Errorf("dataset.root is required")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be a positive integer")
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	switch strings.ToLower(b.Backend) {
	case BackendPlaywright, BackendChromedp:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", b.Backend, BackendPlaywright, BackendChromedp)
	}
	if b.ActionTimeout <= 0 || b.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout and action_timeout must be positive durations")
	}
	switch b.LoadState {
	case LoadStateLoad, LoadStateDomcontentloaded, LoadStateNetworkidle:
	default:
		return fmt.Errorf("unknown load_state %q (want %s, %s or %s)",
			b.LoadState, LoadStateLoad, LoadStateDomcontentloaded, LoadStateNetworkidle)
	}
	// 100 makes chromedp capture PNG, and screenshots are stored as JPEG.
	if b.ScreenshotQuality < 1 || b.ScreenshotQuality > 99 {
		return fmt.Errorf("screenshot_quality must be between 1 and 99")
	}
	return nil
}

// Validate checks the loop budget and limits.
func (e *EngineConfig) Validate() error {
	if e.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be greater than 0")
	}
	if e.LowConfidenceThreshold < 0 || e.LowConfidenceThreshold > 1 {
		return fmt.Errorf("low_confidence_threshold must be between 0.0 and 1.0")
	}
	if e.MaxElements <= 0 || e.HistorySize <= 0 || e.ElementTextLimit <= 0 {
		return fmt.Errorf("max_elements, history_size and element_text_limit must be positive")
	}
	if e.StabilizePolls <= 0 {
		return fmt.Errorf("stabilize_polls must be greater than 0")
	}
	return nil
}
