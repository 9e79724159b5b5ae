package browser

import (
	"net/url"
	"time"

	"github.com/IshaanNene/SauceBot/internal/config"
)

// headlessFlags keep a headless Chromium usable inside containers.
var headlessFlags = []string{
	"disable-gpu",
	"no-sandbox",
	"disable-dev-shm-usage",
	"start-maximized",
}

// Options configures the browser launch.
type Options struct {
	Proxy    string
	Headless bool
	Timeout  time.Duration
	Bin      string
}

// OptionsFromConfig derives launch options from the run configuration.
// The timeout is the effective one (doubled behind a proxy).
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Proxy:    config.NormalizeProxy(cfg.Browser.Proxy),
		Headless: cfg.Browser.Headless,
		Timeout:  cfg.EffectiveTimeout(),
		Bin:      cfg.Browser.Bin,
	}
}

// proxyEndpoint splits a proxy URL into the server address handed to
// Chromium and the credentials, which Chromium refuses in the flag.
func proxyEndpoint(proxy string) (server, user, pass string, err error) {
	if proxy == "" {
		return "", "", "", nil
	}
	u, err := url.Parse(config.NormalizeProxy(proxy))
	if err != nil {
		return "", "", "", err
	}
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
		u.User = nil
	}
	return u.String(), user, pass, nil
}
