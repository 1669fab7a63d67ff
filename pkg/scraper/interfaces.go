package scraper

import (
	"postharvest/pkg/auth"
	"postharvest/pkg/browser"
	"postharvest/pkg/config"
	"postharvest/pkg/logger"
	"postharvest/pkg/ui"
)

// Browser is the tab a run works in
type Browser interface {
	browser.Page
	browser.CookieJar
	SetUserAgent(ua string) error
	Close() error
}

// Launcher starts a browser for a run
type Launcher func(cfg config.BrowserConfig, log logger.Logger) (Browser, error)

// CookieVault loads and saves session cookies
type CookieVault interface {
	Retrieve(name string) (*auth.CookieSet, error)
	RetrieveDefault() (*auth.CookieSet, error)
	Store(set *auth.CookieSet) error
}

// Notifier announces the end of a run and degraded sessions
type Notifier interface {
	RunComplete(s ui.Summary)
	Degraded(cycle int, reason string)
	Failed(err error)
}

// RodLauncher launches Chrome through rod
func RodLauncher(cfg config.BrowserConfig, log logger.Logger) (Browser, error) {
	s, err := browser.Launch(cfg, log)
	if err != nil {
		return nil, err
	}
	return s, nil
}
