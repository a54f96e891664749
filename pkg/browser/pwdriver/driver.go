// Package pwdriver implements browser.Launcher with playwright-go.
package pwdriver

import (
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"

	"storysnap/pkg/browser"
	"storysnap/pkg/errors"
	"storysnap/pkg/logger"
)

// Launcher starts Chromium with a persistent profile
type Launcher struct {
	logger logger.Logger
}

// New creates a playwright launcher
func New(log logger.Logger) *Launcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Launcher{logger: log.WithField("driver", "playwright")}
}

// Launch starts playwright and opens a persistent context on opts.ProfileDir
func (l *Launcher) Launch(opts browser.LaunchOptions) (browser.Session, error) {
	if err := os.MkdirAll(opts.ProfileDir, 0755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launchOptions := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		launchOptions.Viewport = &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		}
	}
	if opts.Stealth {
		launchOptions.IgnoreDefaultArgs = []string{"--enable-automation"}
		launchOptions.Args = append(launchOptions.Args, "--disable-blink-features=AutomationControlled")
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(opts.ProfileDir, launchOptions)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	if opts.NavigationTimeout > 0 {
		bctx.SetDefaultNavigationTimeout(float64(opts.NavigationTimeout.Milliseconds()))
	}

	var page playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else if page, err = bctx.NewPage(); err != nil {
		_ = bctx.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}

	l.logger.InfoWithFields("Browser launched", map[string]interface{}{
		"profile":  opts.ProfileDir,
		"headless": opts.Headless,
	})

	return &session{
		pw:   pw,
		bctx: bctx,
		page: &Page{page: page, bctx: bctx, navTimeout: opts.NavigationTimeout},
	}, nil
}

type session struct {
	pw   *playwright.Playwright
	bctx playwright.BrowserContext
	page *Page
}

func (s *session) Page() browser.Page { return s.page }

func (s *session) Close() error {
	var errs []error
	if err := s.bctx.Close(); err != nil && !isClosed(err) {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	return stderrors.Join(errs...)
}

// Page adapts a playwright.Page
type Page struct {
	page       playwright.Page
	bctx       playwright.BrowserContext
	navTimeout time.Duration
}

func isClosed(err error) bool {
	return stderrors.Is(err, playwright.ErrTargetClosed) || browser.IsClosedMessage(err.Error())
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isClosed(err) {
		return errors.Wrap(errors.ErrorTypePageClosed, op, err)
	}
	return err
}

func (p *Page) URL() string {
	return p.page.URL()
}

func (p *Page) Goto(url string) error {
	options := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}
	if p.navTimeout > 0 {
		options.Timeout = playwright.Float(float64(p.navTimeout.Milliseconds()))
	}
	if _, err := p.page.Goto(url, options); err != nil {
		if isClosed(err) {
			return classify("goto", err)
		}
		return errors.Wrap(errors.ErrorTypeNavigation, "goto "+url, err)
	}
	return nil
}

func (p *Page) Wait(d time.Duration) error {
	if p.page.IsClosed() {
		return errors.Wrap(errors.ErrorTypePageClosed, "wait", playwright.ErrTargetClosed)
	}
	time.Sleep(d)
	if p.page.IsClosed() {
		return errors.Wrap(errors.ErrorTypePageClosed, "wait", playwright.ErrTargetClosed)
	}
	return nil
}

func (p *Page) QueryAll(selector string) ([]browser.Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, classify("query "+selector, err)
	}
	return wrapHandles(handles), nil
}

func (p *Page) Query(selector string) (browser.Element, error) {
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, classify("query "+selector, err)
	}
	if handle == nil {
		return nil, nil
	}
	return &element{handle: handle}, nil
}

func (p *Page) FindByText(pattern string) ([]browser.Element, error) {
	if _, err := p.page.Evaluate(browser.MarkTextMatchesScript, pattern); err != nil {
		return nil, classify("find text", err)
	}
	return p.QueryAll(browser.TextMatchSelector)
}

func (p *Page) MediaStates() ([]browser.MediaState, error) {
	raw, err := p.page.Evaluate(browser.MediaStatesScript)
	if err != nil {
		return nil, classify("media states", err)
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("media states: unexpected result %T", raw)
	}
	return browser.DecodeMediaStates(s)
}

func (p *Page) PauseAndSeek(index int, at float64) error {
	_, err := p.page.Evaluate(browser.PauseAndSeekScript, []interface{}{index, at})
	return classify("seek", err)
}

func (p *Page) ViewportSize() (*browser.Size, error) {
	if p.page.IsClosed() {
		return nil, errors.Wrap(errors.ErrorTypePageClosed, "viewport", playwright.ErrTargetClosed)
	}
	vp := p.page.ViewportSize()
	if vp == nil {
		return nil, nil
	}
	return &browser.Size{Width: vp.Width, Height: vp.Height}, nil
}

func (p *Page) ScreenshotClip(clip browser.Rect) ([]byte, error) {
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
		Clip: &playwright.Rect{
			X:      clip.X,
			Y:      clip.Y,
			Width:  clip.Width,
			Height: clip.Height,
		},
	})
	return data, classify("clip screenshot", err)
}

func (p *Page) Press(key string) error {
	return classify("press "+key, p.page.Keyboard().Press(key))
}

func (p *Page) Cookies() ([]browser.Cookie, error) {
	cookies, err := p.bctx.Cookies()
	if err != nil {
		return nil, classify("cookies", err)
	}
	out := make([]browser.Cookie, 0, len(cookies))
	for _, c := range cookies {
		bc := browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			bc.SameSite = string(*c.SameSite)
		}
		out = append(out, bc)
	}
	return out, nil
}

func (p *Page) SetCookies(cookies []browser.Cookie) error {
	optional := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		domain, path := c.Domain, c.Path
		httpOnly, secure, expires := c.HTTPOnly, c.Secure, c.Expires
		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   &domain,
			Path:     &path,
			HttpOnly: &httpOnly,
			Secure:   &secure,
			Expires:  &expires,
		}
		if c.SameSite != "" {
			sameSite := playwright.SameSiteAttribute(c.SameSite)
			oc.SameSite = &sameSite
		}
		optional = append(optional, oc)
	}
	return classify("set cookies", p.bctx.AddCookies(optional))
}

type element struct {
	handle playwright.ElementHandle
}

func wrapHandles(handles []playwright.ElementHandle) []browser.Element {
	out := make([]browser.Element, len(handles))
	for i, h := range handles {
		out[i] = &element{handle: h}
	}
	return out
}

func (e *element) BoundingBox() (*browser.Rect, error) {
	box, err := e.handle.BoundingBox()
	if err != nil {
		return nil, classify("bounding box", err)
	}
	if box == nil {
		return nil, nil
	}
	return &browser.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *element) Screenshot() ([]byte, error) {
	data, err := e.handle.Screenshot(playwright.ElementHandleScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	return data, classify("element screenshot", err)
}

func (e *element) Click() error {
	return classify("click", e.handle.Click())
}

func (e *element) IsVisible() (bool, error) {
	visible, err := e.handle.IsVisible()
	return visible, classify("visible", err)
}
