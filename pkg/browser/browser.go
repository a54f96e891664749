// Package browser defines the small page-automation surface the capture core needs.
// Drivers in the pwdriver and roddriver subpackages implement it on top of a real
// browser; browsertest provides a scripted fake for unit tests.
package browser

import (
	"time"
)

// KeyArrowRight is the key name used to advance a story without a Next control
const KeyArrowRight = "ArrowRight"

// Rect is a bounding box in CSS pixels
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns Width*Height
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Size is a viewport size in CSS pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Cookie is a driver-neutral browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"same_site,omitempty"`
}

// MediaKind distinguishes the media elements reported by Page.MediaStates
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaState is a snapshot of one img or video element.
// Index is the element's position among elements of the same kind in document order.
type MediaState struct {
	Kind         MediaKind `json:"kind"`
	Index        int       `json:"index"`
	Box          Rect      `json:"box"`
	ReadyState   int       `json:"readyState"`
	Complete     bool      `json:"complete"`
	NaturalWidth int       `json:"naturalWidth"`
	// Duration is 0 when unknown
	Duration float64 `json:"duration"`
}

// Element is a handle to a DOM element on the current page
type Element interface {
	// BoundingBox returns nil without error when the element is not rendered
	BoundingBox() (*Rect, error)
	// Screenshot returns a PNG of the element's box
	Screenshot() ([]byte, error)
	Click() error
	IsVisible() (bool, error)
}

// Page is the single tab a run drives.
// Methods return errors wrapping errors.ErrPageClosed once the tab or browser is gone.
type Page interface {
	URL() string
	Goto(url string) error
	// Wait suspends for d; all settle delays and polling go through it
	Wait(d time.Duration) error

	QueryAll(selector string) ([]Element, error)
	// Query returns nil, nil when nothing matches
	Query(selector string) (Element, error)
	// FindByText returns elements whose trimmed rendered text matches pattern
	// case-insensitively, in document order
	FindByText(pattern string) ([]Element, error)

	MediaStates() ([]MediaState, error)
	// PauseAndSeek pauses the index-th video and, when at > 0, sets its current time
	PauseAndSeek(index int, at float64) error

	// ViewportSize returns nil without error when the size is unknown
	ViewportSize() (*Size, error)
	// ScreenshotClip returns a PNG of the clip region
	ScreenshotClip(clip Rect) ([]byte, error)
	Press(key string) error

	Cookies() ([]Cookie, error)
	SetCookies(cookies []Cookie) error
}

// LaunchOptions configures a browser session
type LaunchOptions struct {
	ProfileDir        string
	Headless          bool
	Viewport          Size
	Args              []string
	Stealth           bool
	NavigationTimeout time.Duration
}

// Session owns one browser and its page
type Session interface {
	Page() Page
	Close() error
}

// Launcher starts browser sessions
type Launcher interface {
	Launch(opts LaunchOptions) (Session, error)
}
