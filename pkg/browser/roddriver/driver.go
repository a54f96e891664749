// Package roddriver implements browser.Launcher with go-rod and go-rod/stealth.
package roddriver

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"storysnap/pkg/browser"
	"storysnap/pkg/errors"
	"storysnap/pkg/logger"
)

// Launcher starts a local Chrome through rod's launcher
type Launcher struct {
	logger logger.Logger
}

// New creates a rod launcher
func New(log logger.Logger) *Launcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Launcher{logger: log.WithField("driver", "rod")}
}

// Launch starts Chrome on opts.ProfileDir and opens one page, stealth-patched when requested
func (l *Launcher) Launch(opts browser.LaunchOptions) (browser.Session, error) {
	if err := os.MkdirAll(opts.ProfileDir, 0755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}

	lnch := launcher.New().
		UserDataDir(opts.ProfileDir).
		Headless(opts.Headless).
		Leakless(true)
	for _, arg := range opts.Args {
		name, value, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if value == "" {
			lnch = lnch.Set(flags.Flag(name))
		} else {
			lnch = lnch.Set(flags.Flag(name), value)
		}
	}
	if opts.Stealth {
		lnch = lnch.Set("disable-blink-features", "AutomationControlled")
	}

	wsURL, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		lnch.Cleanup()
		return nil, fmt.Errorf("connect chrome: %w", err)
	}

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		_ = b.Close()
		lnch.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Viewport.Width,
			Height:            opts.Viewport.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			l.logger.WithError(err).Warn("Failed to set viewport")
		}
	}

	l.logger.InfoWithFields("Browser launched", map[string]interface{}{
		"profile":  opts.ProfileDir,
		"headless": opts.Headless,
		"stealth":  opts.Stealth,
	})

	return &session{
		browser: b,
		lnch:    lnch,
		page:    &Page{page: page, browser: b, navTimeout: opts.NavigationTimeout},
	}, nil
}

type session struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *Page
}

func (s *session) Page() browser.Page { return s.page }

func (s *session) Close() error {
	err := s.browser.Close()
	s.lnch.Cleanup()
	if err != nil && !browser.IsClosedMessage(err.Error()) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// Page adapts a rod.Page
type Page struct {
	page       *rod.Page
	browser    *rod.Browser
	navTimeout time.Duration
}

func classify(op string, err error) error {
	return browser.ClassifyError(op, err)
}

func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

func (p *Page) Goto(url string) error {
	page, release := withTimeout(p.page, p.navTimeout)
	defer release()

	if err := page.Navigate(url); err != nil {
		if browser.IsClosedMessage(err.Error()) {
			return classify("goto", err)
		}
		return errors.Wrap(errors.ErrorTypeNavigation, "goto "+url, err)
	}
	if err := page.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		return classify("goto", err)
	}
	return nil
}

// withTimeout bounds page operations by d. release must be called to free the timer.
func withTimeout(page *rod.Page, d time.Duration) (*rod.Page, func()) {
	if d <= 0 {
		return page, func() {}
	}
	timed := page.Timeout(d)
	return timed, func() { timed.CancelTimeout() }
}

func (p *Page) Wait(d time.Duration) error {
	time.Sleep(d)
	if _, err := p.page.Info(); err != nil {
		return errors.Wrap(errors.ErrorTypePageClosed, "wait", err)
	}
	return nil
}

func (p *Page) QueryAll(selector string) ([]browser.Element, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, classify("query "+selector, err)
	}
	return wrapElements(els), nil
}

func (p *Page) Query(selector string) (browser.Element, error) {
	has, el, err := p.page.Has(selector)
	if err != nil {
		return nil, classify("query "+selector, err)
	}
	if !has {
		return nil, nil
	}
	return &element{el: el}, nil
}

func (p *Page) FindByText(pattern string) ([]browser.Element, error) {
	if _, err := p.page.Eval(browser.MarkTextMatchesScript, pattern); err != nil {
		return nil, classify("find text", err)
	}
	return p.QueryAll(browser.TextMatchSelector)
}

func (p *Page) MediaStates() ([]browser.MediaState, error) {
	res, err := p.page.Eval(browser.MediaStatesScript)
	if err != nil {
		return nil, classify("media states", err)
	}
	return browser.DecodeMediaStates(res.Value.Str())
}

func (p *Page) PauseAndSeek(index int, at float64) error {
	_, err := p.page.Eval(browser.PauseAndSeekScript, []interface{}{index, at})
	return classify("seek", err)
}

func (p *Page) ViewportSize() (*browser.Size, error) {
	res, err := p.page.Eval(`() => ({ width: window.innerWidth, height: window.innerHeight })`)
	if err != nil {
		return nil, classify("viewport", err)
	}
	w, h := res.Value.Get("width").Int(), res.Value.Get("height").Int()
	if w <= 0 || h <= 0 {
		return nil, nil
	}
	return &browser.Size{Width: w, Height: h}, nil
}

func (p *Page) ScreenshotClip(clip browser.Rect) ([]byte, error) {
	data, err := p.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      clip.X,
			Y:      clip.Y,
			Width:  clip.Width,
			Height: clip.Height,
			Scale:  1,
		},
	})
	return data, classify("clip screenshot", err)
}

var keys = map[string]input.Key{
	browser.KeyArrowRight: input.ArrowRight,
	"ArrowLeft":           input.ArrowLeft,
	"Escape":              input.Escape,
	"Enter":               input.Enter,
}

func (p *Page) Press(key string) error {
	k, ok := keys[key]
	if !ok {
		return fmt.Errorf("press: unsupported key %q", key)
	}
	return classify("press "+key, p.page.Keyboard.Type(k))
}

func (p *Page) Cookies() ([]browser.Cookie, error) {
	cookies, err := p.page.Cookies(nil)
	if err != nil {
		return nil, classify("cookies", err)
	}
	out := make([]browser.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out, nil
}

func (p *Page) SetCookies(cookies []browser.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	return classify("set cookies", p.browser.SetCookies(params))
}

type element struct {
	el *rod.Element
}

func wrapElements(els rod.Elements) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out
}

func (e *element) BoundingBox() (*browser.Rect, error) {
	shape, err := e.el.Shape()
	if err != nil {
		return nil, classify("bounding box", err)
	}
	box := shape.Box()
	if box == nil {
		return nil, nil
	}
	return &browser.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *element) Screenshot() ([]byte, error) {
	data, err := e.el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	return data, classify("element screenshot", err)
}

func (e *element) Click() error {
	return classify("click", e.el.Click(proto.InputMouseButtonLeft, 1))
}

func (e *element) IsVisible() (bool, error) {
	visible, err := e.el.Visible()
	return visible, classify("visible", err)
}
