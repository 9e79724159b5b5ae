package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}

	if len(cfg.Accounts.Usernames) == 0 {
		return fmt.Errorf("accounts.usernames must list at least one account")
	}
	for i, name := range cfg.Accounts.Usernames {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("accounts.usernames[%d] is empty", i)
		}
	}

	if cfg.Browser.Timeout < time.Millisecond {
		return fmt.Errorf("browser.timeout must be at least 1ms, got %s", cfg.Browser.Timeout)
	}
	if cfg.Browser.Proxy != "" {
		if _, err := url.Parse(NormalizeProxy(cfg.Browser.Proxy)); err != nil {
			return fmt.Errorf("invalid proxy %q: %w", cfg.Browser.Proxy, err)
		}
	}

	if cfg.Output.LogDir == "" {
		return fmt.Errorf("output.log_dir must not be empty")
	}
	if cfg.Output.ScreenshotDir == "" {
		return fmt.Errorf("output.screenshot_dir must not be empty")
	}
	if cfg.Output.MaxLogSize <= 0 {
		return fmt.Errorf("output.max_log_size must be > 0, got %d", cfg.Output.MaxLogSize)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /, got %q", cfg.Metrics.Path)
		}
	}

	return nil
}

// ValidateURL checks that a URL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// NormalizeProxy prepends http:// to a bare host:port proxy address.
func NormalizeProxy(proxy string) string {
	if proxy == "" || strings.Contains(proxy, "//") {
		return proxy
	}
	return "http://" + proxy
}
