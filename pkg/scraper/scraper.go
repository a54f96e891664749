package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"storysnap/pkg/browser"
	"storysnap/pkg/capture"
	"storysnap/pkg/config"
	"storysnap/pkg/errors"
	"storysnap/pkg/instagram"
	"storysnap/pkg/logger"
	"storysnap/pkg/retry"
	"storysnap/pkg/session"
	"storysnap/pkg/storage"
	"storysnap/pkg/traversal"
)

// Report describes a finished run
type Report struct {
	Username      string
	StoryURL      string
	OutputDir     string
	AlreadyLogged bool
	Result        traversal.Result
	Started       time.Time
	Finished      time.Time
}

// Scraper orchestrates a story capture run
type Scraper struct {
	config   *config.Config
	launcher browser.Launcher
	vault    CookieVault
	notifier traversal.Notifier
	logger   logger.Logger
	now      func() time.Time

	onLoginRequired func()
	onOutputDir     func(dir string)
	backoff         retry.BackoffStrategy

	mu      sync.Mutex
	session browser.Session
}

// New creates a Scraper for cfg that drives browsers from launcher
func New(cfg *config.Config, launcher browser.Launcher) *Scraper {
	return &Scraper{
		config:   cfg,
		launcher: launcher,
		logger:   logger.GetLogger().WithField("component", "scraper"),
		now:      time.Now,
	}
}

// SetVault enables cookie seeding and saving
func (s *Scraper) SetVault(v CookieVault) { s.vault = v }

// SetNotifier sets the observer of traversal events
func (s *Scraper) SetNotifier(n traversal.Notifier) { s.notifier = n }

// SetLogger replaces the logger
func (s *Scraper) SetLogger(l logger.Logger) { s.logger = l.WithField("component", "scraper") }

// SetLoginHook is called whenever a manual login is needed
func (s *Scraper) SetLoginHook(fn func()) { s.onLoginRequired = fn }

// SetOutputDirHook is called with the date bucket directory once it is fixed for the run
func (s *Scraper) SetOutputDirHook(fn func(dir string)) { s.onOutputDir = fn }

// SetClock replaces the wall clock used for the date bucket
func (s *Scraper) SetClock(now func() time.Time) { s.now = now }

// SetNavigationBackoff replaces the backoff between navigation retries
func (s *Scraper) SetNavigationBackoff(b retry.BackoffStrategy) { s.backoff = b }

// Close closes the browser of a running capture, if any
func (s *Scraper) Close() error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.Close()
}

// StoryURL returns the story URL captured for username
func (s *Scraper) StoryURL(username string) string {
	if s.config.Story.URL != "" {
		return s.config.Story.URL
	}
	return instagram.StoryURL(s.config.Story.BaseURL, username)
}

// CaptureStories captures the current story of username. A browser closed
// mid-run (including through ctx) ends the run without an error.
func (s *Scraper) CaptureStories(ctx context.Context, username string) (*Report, error) {
	cfg := s.config
	report := &Report{
		Username: username,
		StoryURL: s.StoryURL(username),
		Started:  s.now(),
	}
	if report.StoryURL == "" {
		return report, errors.New(errors.ErrorTypeConfig, "no username or story URL given")
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.DateLayout, report.Started)
	if err != nil {
		return report, err
	}
	report.OutputDir = store.GetOutputDir()
	if s.onOutputDir != nil {
		s.onOutputDir(report.OutputDir)
	}

	logger.LogComponentStart("scraper", map[string]interface{}{
		"story_url":   report.StoryURL,
		"output_dir":  report.OutputDir,
		"max_stories": cfg.Story.MaxStories,
		"driver":      cfg.Browser.Driver,
	})

	sess, err := s.launcher.Launch(browser.LaunchOptions{
		ProfileDir:        cfg.Browser.ProfileDir,
		Headless:          cfg.Browser.Headless,
		Viewport:          browser.Size{Width: cfg.Browser.ViewportWidth, Height: cfg.Browser.ViewportHeight},
		Args:              cfg.Browser.Args,
		Stealth:           cfg.Browser.Stealth,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
	})
	if err != nil {
		return report, fmt.Errorf("launch browser: %w", err)
	}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	defer s.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Warn("Interrupted, closing browser")
			_ = s.Close()
		case <-stop:
		}
	}()

	page := sess.Page()
	s.seedCookies(page)

	err = s.run(ctx, page, store, report)
	report.Finished = s.now()

	if err != nil {
		if errors.IsPageClosed(err) {
			s.logger.Warn("Browser closed before the run finished")
			report.Result.Reason = traversal.ReasonPageClosed
			logger.LogComponentStop("scraper", string(report.Result.Reason))
			return report, nil
		}
		logger.LogComponentStop("scraper", "error")
		return report, err
	}

	if report.Result.Reason != traversal.ReasonPageClosed {
		s.saveCookies(page)
		s.logger.DebugWithFields("Keeping browser open", map[string]interface{}{"duration": cfg.Browser.KeepOpen})
		_ = page.Wait(cfg.Browser.KeepOpen)
	}

	logger.LogComponentStop("scraper", string(report.Result.Reason))
	return report, nil
}

// run performs the login gate, opens the story and traverses it
func (s *Scraper) run(ctx context.Context, page browser.Page, store *storage.Manager, report *Report) error {
	cfg := s.config
	base := cfg.Story.BaseURL

	guard := session.NewGuard(page, base, cfg.Session, s.logger)
	guard.OnLoginRequired = s.onLoginRequired

	if err := s.navigate(ctx, page, instagram.HomeURL(base)); err != nil {
		return err
	}
	if err := page.Wait(cfg.Session.HomeSettle); err != nil {
		return err
	}

	onLoginForm, err := s.onLoginForm(page)
	if err != nil {
		return err
	}
	if onLoginForm {
		s.logger.Info("Login form shown, waiting for manual login")
		if err := guard.OpenLogin(); err != nil {
			return err
		}
		if err := guard.WaitForLogin(); err != nil {
			return err
		}
	} else {
		report.AlreadyLogged, err = guard.Ensure()
		if err != nil {
			return err
		}
	}

	if err := s.openStory(ctx, page, report.StoryURL); err != nil {
		return err
	}

	if instagram.IsLoginRoute(page.URL()) {
		s.logger.Warn("Redirected to login while opening the story")
		if guard.OnLoginRequired != nil {
			guard.OnLoginRequired()
		}
		if err := guard.WaitForLogin(); err != nil {
			return err
		}
		if err := s.openStory(ctx, page, report.StoryURL); err != nil {
			return err
		}
	}

	capturer := capture.NewCapturer(page, store, cfg.Capture, s.logger)
	controller := traversal.NewController(page, capturer, cfg.Story.MaxStories, cfg.Capture, s.notifier, s.logger)

	result, err := controller.Run()
	report.Result = result
	return err
}

func (s *Scraper) openStory(ctx context.Context, page browser.Page, storyURL string) error {
	s.logger.InfoWithFields("Opening story", map[string]interface{}{"url": storyURL})
	if err := s.navigate(ctx, page, storyURL); err != nil {
		return err
	}
	return page.Wait(s.config.Session.StorySettle)
}

// navigate loads target, retrying navigation failures
func (s *Scraper) navigate(ctx context.Context, page browser.Page, target string) error {
	cfg := retry.NavigationConfig(ctx, s.config.Browser.NavigationRetries, s.logger)
	if s.backoff != nil {
		cfg.Backoff = s.backoff
	}
	return retry.Do(func() error {
		return page.Goto(target)
	}, cfg)
}

func (s *Scraper) onLoginForm(page browser.Page) (bool, error) {
	if instagram.IsLoginRoute(page.URL()) {
		return true, nil
	}
	el, err := page.Query(instagram.LoginFormSelector)
	if err != nil {
		if errors.IsPageClosed(err) {
			return false, err
		}
		return false, nil
	}
	return el != nil, nil
}

func (s *Scraper) seedCookies(page browser.Page) {
	if s.vault == nil || !s.config.Session.CookieVault {
		return
	}

	record, err := s.vault.Load(s.config.Session.Account)
	if err != nil {
		s.logger.WithError(err).Debug("No saved cookies")
		return
	}
	if record.Expired(s.now()) {
		s.logger.Info("Saved cookies have expired, skipping")
		return
	}

	if err := page.SetCookies(record.Cookies); err != nil {
		s.logger.WithError(err).Warn("Failed to seed saved cookies")
		return
	}
	s.logger.InfoWithFields("Seeded saved cookies", map[string]interface{}{
		"account": record.Account,
		"cookies": len(record.Cookies),
	})
}

func (s *Scraper) saveCookies(page browser.Page) {
	if s.vault == nil || !s.config.Session.CookieVault {
		return
	}

	cookies, err := page.Cookies()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read cookies")
		return
	}
	if err := s.vault.Save(s.config.Session.Account, cookies, cookieDomain(s.config.Story.BaseURL)); err != nil {
		s.logger.WithError(err).Warn("Failed to save cookies")
		return
	}
	s.logger.Debug("Saved session cookies")
}

// cookieDomain returns the registrable host of base, e.g. instagram.com
func cookieDomain(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Hostname() == "" {
		return "instagram.com"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
