// Package browsertest provides an in-memory scripted browser for tests.
// Nothing sleeps: Page.Wait only records the requested duration.
package browsertest

import (
	"fmt"
	"sync"
	"time"

	"storysnap/pkg/browser"
	"storysnap/pkg/errors"
)

// Element is a scripted element handle
type Element struct {
	Box        *browser.Rect
	BoxErr     error
	Shot       []byte
	ShotErr    error
	Visible    bool
	VisibleErr error
	ClickErr   error
	// OnClick runs after a successful click
	OnClick func()

	mu     sync.Mutex
	clicks int
}

// NewElement returns a visible element with the given box
func NewElement(x, y, w, h float64) *Element {
	return &Element{Box: &browser.Rect{X: x, Y: y, Width: w, Height: h}, Visible: true}
}

func (e *Element) BoundingBox() (*browser.Rect, error) {
	if e.BoxErr != nil {
		return nil, e.BoxErr
	}
	return e.Box, nil
}

func (e *Element) Screenshot() ([]byte, error) {
	if e.ShotErr != nil {
		return nil, e.ShotErr
	}
	return e.Shot, nil
}

func (e *Element) Click() error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) IsVisible() (bool, error) {
	return e.Visible, e.VisibleErr
}

// Clicks returns how many times the element was clicked
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Seek records one PauseAndSeek call
type Seek struct {
	Index int
	At    float64
}

// Page is a scripted browser.Page. Exported fields may be changed by hooks
// between calls; every method fails with errors.ErrPageClosed after Close.
type Page struct {
	mu sync.Mutex

	CurrentURL string
	// Selectors maps a CSS selector to the elements it returns
	Selectors map[string][]*Element
	// Texts maps a FindByText pattern to the elements it returns
	Texts map[string][]*Element

	// MediaFunc produces the media snapshot for the n-th call (0-based)
	MediaFunc func(call int) []browser.MediaState
	MediaErr  error

	Viewport    *browser.Size
	ViewportErr error

	ClipShot []byte
	ClipErr  error

	CookieJar []browser.Cookie

	// Hooks
	OnGoto  func(url string) error
	OnPress func(key string)
	OnWait  func(d time.Duration)

	closed     bool
	mediaCalls int
	waits      []time.Duration
	gotos      []string
	keys       []string
	seeks      []Seek
	clips      []browser.Rect
}

// NewPage returns a page at url with a 1280x900 viewport
func NewPage(url string) *Page {
	return &Page{
		CurrentURL: url,
		Selectors:  map[string][]*Element{},
		Texts:      map[string][]*Element{},
		Viewport:   &browser.Size{Width: 1280, Height: 900},
	}
}

func (p *Page) check(op string) error {
	if p.closed {
		return errors.Wrap(errors.ErrorTypePageClosed, op, fmt.Errorf("target closed"))
	}
	return nil
}

// Close makes every later call fail as if the tab was closed
func (p *Page) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// SetURL changes the current URL
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	p.CurrentURL = url
	p.mu.Unlock()
}

// Add registers elements for selector
func (p *Page) Add(selector string, els ...*Element) {
	p.mu.Lock()
	p.Selectors[selector] = append(p.Selectors[selector], els...)
	p.mu.Unlock()
}

// SetMedia makes every MediaStates call return states
func (p *Page) SetMedia(states ...browser.MediaState) {
	p.mu.Lock()
	p.MediaFunc = func(int) []browser.MediaState { return states }
	p.mu.Unlock()
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *Page) Goto(url string) error {
	p.mu.Lock()
	if err := p.check("goto"); err != nil {
		p.mu.Unlock()
		return err
	}
	p.gotos = append(p.gotos, url)
	hook := p.OnGoto
	p.mu.Unlock()

	if hook != nil {
		if err := hook(url); err != nil {
			return err
		}
	}
	p.SetURL(url)
	return nil
}

func (p *Page) Wait(d time.Duration) error {
	p.mu.Lock()
	if err := p.check("wait"); err != nil {
		p.mu.Unlock()
		return err
	}
	p.waits = append(p.waits, d)
	hook := p.OnWait
	p.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return nil
}

func (p *Page) QueryAll(selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check("query"); err != nil {
		return nil, err
	}
	return toElements(p.Selectors[selector]), nil
}

func (p *Page) Query(selector string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check("query"); err != nil {
		return nil, err
	}
	els := p.Selectors[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (p *Page) FindByText(pattern string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check("find text"); err != nil {
		return nil, err
	}
	return toElements(p.Texts[pattern]), nil
}

func (p *Page) MediaStates() ([]browser.MediaState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check("media states"); err != nil {
		return nil, err
	}
	if p.MediaErr != nil {
		return nil, p.MediaErr
	}
	call := p.mediaCalls
	p.mediaCalls++
	if p.MediaFunc == nil {
		return nil, nil
	}
	return p.MediaFunc(call), nil
}

func (p *Page) PauseAndSeek(index int, at float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check("seek"); err != nil {
		return err
	}
	p.seeks = append(p.seeks, Seek{Index: index, At: at})
	return nil
}

func (p *Page) ViewportSize() (*browser.Size, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check("viewport"); err != nil {
		return nil, err
	}
	return p.Viewport, p.ViewportErr
}

func (p *Page) ScreenshotClip(clip browser.Rect) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check("screenshot"); err != nil {
		return nil, err
	}
	p.clips = append(p.clips, clip)
	if p.ClipErr != nil {
		return nil, p.ClipErr
	}
	return p.ClipShot, nil
}

func (p *Page) Press(key string) error {
	p.mu.Lock()
	if err := p.check("press"); err != nil {
		p.mu.Unlock()
		return err
	}
	p.keys = append(p.keys, key)
	hook := p.OnPress
	p.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	return nil
}

func (p *Page) Cookies() ([]browser.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check("cookies"); err != nil {
		return nil, err
	}
	return append([]browser.Cookie(nil), p.CookieJar...), nil
}

func (p *Page) SetCookies(cookies []browser.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check("set cookies"); err != nil {
		return err
	}
	p.CookieJar = append(p.CookieJar, cookies...)
	return nil
}

// Waits returns every duration passed to Wait
func (p *Page) Waits() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.waits...)
}

// Gotos returns every URL passed to Goto
func (p *Page) Gotos() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.gotos...)
}

// Keys returns every key pressed
func (p *Page) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// Seeks returns every PauseAndSeek call
func (p *Page) Seeks() []Seek {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Seek(nil), p.seeks...)
}

// Clips returns every clip passed to ScreenshotClip
func (p *Page) Clips() []browser.Rect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.Rect(nil), p.clips...)
}

// MediaCalls returns how many times MediaStates was called
func (p *Page) MediaCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mediaCalls
}

func toElements(els []*Element) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}

// Session wraps a Page
type Session struct {
	FakePage *Page
	CloseErr error

	mu     sync.Mutex
	closed bool
}

func (s *Session) Page() browser.Page { return s.FakePage }

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.FakePage.Close()
	return s.CloseErr
}

// Closed reports whether Close was called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Launcher hands out one prepared Session
type Launcher struct {
	Session   *Session
	LaunchErr error
	Options   []browser.LaunchOptions
}

// NewLauncher returns a launcher serving page
func NewLauncher(page *Page) *Launcher {
	return &Launcher{Session: &Session{FakePage: page}}
}

func (l *Launcher) Launch(opts browser.LaunchOptions) (browser.Session, error) {
	l.Options = append(l.Options, opts)
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	return l.Session, nil
}
