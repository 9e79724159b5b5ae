package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultUsernames are the demo accounts, each exercising a different
// behavioral variant of the shop.
var DefaultUsernames = []string{
	"standard_user",
	"locked_out_user",
	"problem_user",
	"performance_glitch_user",
	"error_user",
	"visual_user",
}

// Config is the root configuration for SauceBot. It is read-only once a run starts.
type Config struct {
	Site     SiteConfig     `mapstructure:"site"     yaml:"site"`
	Accounts AccountsConfig `mapstructure:"accounts" yaml:"accounts"`
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Output   OutputConfig   `mapstructure:"output"   yaml:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// SiteConfig points the bot at the shop.
type SiteConfig struct {
	BaseURL       string `mapstructure:"base_url"        yaml:"base_url"`
	ProxyCheckURL string `mapstructure:"proxy_check_url" yaml:"proxy_check_url"`
}

// AccountsConfig lists the accounts to run, all sharing one password.
type AccountsConfig struct {
	Usernames []string `mapstructure:"usernames" yaml:"usernames"`
	Password  string   `mapstructure:"password"  yaml:"password"`
}

// BrowserConfig controls the browser launch.
type BrowserConfig struct {
	Proxy    string        `mapstructure:"proxy"    yaml:"proxy"`
	Headless bool          `mapstructure:"headless" yaml:"headless"`
	Timeout  time.Duration `mapstructure:"timeout"  yaml:"timeout"`
	Bin      string        `mapstructure:"bin"      yaml:"bin"`
}

// OutputConfig controls where logs and screenshots land.
type OutputConfig struct {
	LogDir        string `mapstructure:"log_dir"        yaml:"log_dir"`
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	Screenshots   bool   `mapstructure:"screenshots"    yaml:"screenshots"`
	MaxLogSize    int64  `mapstructure:"max_log_size"   yaml:"max_log_size"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:       "https://www.saucedemo.com/",
			ProxyCheckURL: "https://pool.proxyspace.pro",
		},
		Accounts: AccountsConfig{
			Usernames: append([]string(nil), DefaultUsernames...),
			Password:  "secret_sauce",
		},
		Browser: BrowserConfig{
			Timeout: 10 * time.Second,
		},
		Output: OutputConfig{
			LogDir:        "logs",
			ScreenshotDir: "screenshots",
			MaxLogSize:    5_242_880, // 5MB
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// EffectiveTimeout is the element-wait timeout, doubled behind a proxy.
func (c *Config) EffectiveTimeout() time.Duration {
	if c.Browser.Proxy != "" {
		return 2 * c.Browser.Timeout
	}
	return c.Browser.Timeout
}
