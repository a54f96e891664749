// Package session decides whether the browser is logged in and, when it is not,
// waits for the operator to log in by hand.
package session

import (
	"strings"
	"time"

	"storysnap/pkg/browser"
	"storysnap/pkg/config"
	"storysnap/pkg/errors"
	"storysnap/pkg/instagram"
	"storysnap/pkg/logger"
)

// loginPollInterval is how often the URL is checked during a login wait
const loginPollInterval = 500 * time.Millisecond

// Guard checks and restores the login state of one page
type Guard struct {
	page    browser.Page
	baseURL string
	cfg     config.SessionConfig
	logger  logger.Logger

	// OnLoginRequired runs before the login page is opened
	OnLoginRequired func()
}

// NewGuard creates a guard for page
func NewGuard(page browser.Page, baseURL string, cfg config.SessionConfig, log logger.Logger) *Guard {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Guard{
		page:    page,
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
		logger:  log.WithField("component", "session"),
	}
}

// Check reports whether the page currently looks authenticated. Any one signal is
// enough: a non-empty session cookie or one of the logged-in-only elements. It
// never navigates and is evaluated fresh on every call.
func (g *Guard) Check() (bool, error) {
	cookies, err := g.page.Cookies()
	if err != nil {
		if errors.IsPageClosed(err) {
			return false, err
		}
		g.logger.WithError(err).Debug("Reading cookies failed")
	}
	for _, c := range cookies {
		if c.Name == instagram.SessionCookie && c.Value != "" {
			return true, nil
		}
	}

	for _, selector := range instagram.AuthenticatedSelectors {
		el, err := g.page.Query(selector)
		if err != nil {
			if errors.IsPageClosed(err) {
				return false, err
			}
			continue
		}
		if el != nil {
			return true, nil
		}
	}

	return false, nil
}

// Ensure returns true when the session was already authenticated. Otherwise it
// opens the login page and blocks until the operator finishes logging in, failing
// with errors.ErrLoginTimeout when the wait runs out.
func (g *Guard) Ensure() (bool, error) {
	ok, err := g.Check()
	if err != nil {
		return false, err
	}
	if ok {
		g.logger.Debug("Session is authenticated")
		return true, nil
	}

	g.logger.Warn("Session appears expired or invalid, redirecting to login")
	if err := g.OpenLogin(); err != nil {
		return false, err
	}
	return false, g.WaitForLogin()
}

// OpenLogin navigates to the login page
func (g *Guard) OpenLogin() error {
	if g.OnLoginRequired != nil {
		g.OnLoginRequired()
	}
	return g.page.Goto(instagram.LoginURL(g.baseURL))
}

// WaitForLogin polls the URL until it is a site page other than a login route,
// then settles so post-login redirects can finish.
func (g *Guard) WaitForLogin() error {
	g.logger.InfoWithFields("Waiting for manual login", map[string]interface{}{
		"timeout": g.cfg.LoginTimeout,
	})

	polls := int((g.cfg.LoginTimeout + loginPollInterval - 1) / loginPollInterval)
	for i := 0; i <= polls; i++ {
		if g.loggedInURL(g.page.URL()) {
			g.logger.Info("Login detected")
			return g.page.Wait(g.cfg.LoginSettle)
		}
		if i == polls {
			break
		}
		if err := g.page.Wait(loginPollInterval); err != nil {
			return err
		}
	}

	return errors.ErrLoginTimeout
}

func (g *Guard) loggedInURL(url string) bool {
	return strings.HasPrefix(url, g.baseURL+"/") && !instagram.IsLoginRoute(url)
}
