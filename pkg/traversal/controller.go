// Package traversal walks a story slide by slide: it dismisses confirmation
// interstitials, captures each slide and advances until the story ends.
package traversal

import (
	"time"

	"storysnap/pkg/browser"
	"storysnap/pkg/capture"
	"storysnap/pkg/config"
	"storysnap/pkg/errors"
	"storysnap/pkg/instagram"
	"storysnap/pkg/logger"
)

// State is a step of the traversal state machine
type State int

const (
	StateEnter State = iota
	StateCheckInterstitial
	StateCapture
	StateAdvance
	StateDone
)

func (s State) String() string {
	switch s {
	case StateEnter:
		return "enter"
	case StateCheckInterstitial:
		return "check_interstitial"
	case StateCapture:
		return "capture"
	case StateAdvance:
		return "advance"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Reason explains why a traversal stopped
type Reason string

const (
	ReasonLeftStory         Reason = "left_story"
	ReasonMaxStories        Reason = "max_stories"
	ReasonPageClosed        Reason = "page_closed"
	ReasonInterstitialLimit Reason = "interstitial_limit"
)

// Result summarises a finished traversal. Attempted counts every slide that
// reached the capture step, accepted or not.
type Result struct {
	Attempted     int    `json:"attempted"`
	Saved         int    `json:"saved"`
	Skipped       int    `json:"skipped"`
	Interstitials int    `json:"interstitials"`
	Reason        Reason `json:"reason"`
}

// SlideCapturer captures the slide currently on screen
type SlideCapturer interface {
	Capture(index int) (capture.Outcome, error)
}

// Controller runs the traversal loop on one page it owns exclusively
type Controller struct {
	page       browser.Page
	capturer   SlideCapturer
	maxStories int
	cfg        config.CaptureConfig
	notifier   Notifier
	logger     logger.Logger

	state State
	now   func() time.Time
}

// NewController creates a controller. notifier may be nil.
func NewController(page browser.Page, capturer SlideCapturer, maxStories int, cfg config.CaptureConfig, notifier Notifier, log logger.Logger) *Controller {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if notifier == nil {
		notifier = Notifiers(nil)
	}
	return &Controller{
		page:       page,
		capturer:   capturer,
		maxStories: maxStories,
		cfg:        cfg,
		notifier:   notifier,
		logger:     log.WithField("component", "traversal"),
		now:        time.Now,
	}
}

// State returns the state the controller is in
func (c *Controller) State() State {
	return c.state
}

// Run walks the story until it leaves the story surface, reaches maxStories,
// loses the page or keeps hitting interstitials. A closed page is a normal
// termination; any other capture error is returned with the partial result.
func (c *Controller) Run() (Result, error) {
	var res Result
	index := 0
	// interstitials dismissed since the last capture
	streak := 0

	c.state = StateEnter
	for c.state != StateDone {
		switch c.state {
		case StateEnter:
			switch {
			case !instagram.IsStoryRoute(c.page.URL()):
				c.finish(&res, ReasonLeftStory)
			case index >= c.maxStories:
				c.finish(&res, ReasonMaxStories)
			default:
				c.state = StateCheckInterstitial
			}

		case StateCheckInterstitial:
			el, err := c.findInterstitial()
			if err != nil {
				c.finish(&res, ReasonPageClosed)
				continue
			}
			if el == nil {
				c.state = StateCapture
				continue
			}
			if c.cfg.MaxInterstitials > 0 && streak >= c.cfg.MaxInterstitials {
				c.logger.WarnWithFields("Interstitial keeps reappearing, giving up", map[string]interface{}{
					"dismissals": streak,
				})
				c.finish(&res, ReasonInterstitialLimit)
				continue
			}
			dismissed, err := c.dismiss(el)
			if err != nil {
				c.finish(&res, ReasonPageClosed)
				continue
			}
			if !dismissed {
				c.state = StateCapture
				continue
			}
			streak++
			res.Interstitials++
			c.emit(Event{Kind: EventInterstitial, Slide: index + 1})
			c.state = StateEnter

		case StateCapture:
			outcome, err := c.capturer.Capture(index)
			if err != nil {
				if errors.IsPageClosed(err) {
					c.logger.Warn("Page closed during capture")
					c.finish(&res, ReasonPageClosed)
					continue
				}
				return res, err
			}
			c.record(&res, index, outcome)
			index++
			streak = 0
			c.state = StateAdvance

		case StateAdvance:
			if err := c.advance(); err != nil {
				c.finish(&res, ReasonPageClosed)
				continue
			}
			if !instagram.IsStoryRoute(c.page.URL()) {
				c.finish(&res, ReasonLeftStory)
				continue
			}
			c.state = StateEnter
		}
	}

	return res, nil
}

func (c *Controller) finish(res *Result, reason Reason) {
	res.Reason = reason
	c.state = StateDone
	logger.LogRunSummary(c.logger, res.Attempted, res.Saved, res.Skipped, res.Interstitials, string(reason))
	final := *res
	c.emit(Event{Kind: EventDone, Slide: res.Attempted, Reason: string(reason), Result: &final})
}

func (c *Controller) record(res *Result, index int, o capture.Outcome) {
	res.Attempted++
	logger.LogSlide(c.logger, index+1, o.Accepted, o.Path, string(o.Method), o.Reason)

	e := Event{Slide: index + 1, Path: o.Path, Method: string(o.Method), Reason: o.Reason}
	if o.Accepted {
		res.Saved++
		e.Kind = EventSaved
	} else {
		res.Skipped++
		e.Kind = EventSkipped
	}
	c.emit(e)
}

func (c *Controller) emit(e Event) {
	e.Time = c.now()
	e.URL = c.page.URL()
	c.notifier.Notify(e)
}

// findInterstitial returns the first "View story" control with a visible width.
// Only a closed page is reported as an error.
func (c *Controller) findInterstitial() (browser.Element, error) {
	els, err := c.page.FindByText(instagram.InterstitialPattern)
	if err != nil {
		if errors.IsPageClosed(err) {
			return nil, err
		}
		c.logger.WithError(err).Debug("Interstitial scan failed")
		return nil, nil
	}

	for _, el := range els {
		box, err := el.BoundingBox()
		if err != nil || box == nil || box.Width <= 0 {
			continue
		}
		return el, nil
	}
	return nil, nil
}

// dismiss clicks the interstitial and settles. A failed click counts as no
// interstitial so the slide is still captured.
func (c *Controller) dismiss(el browser.Element) (bool, error) {
	if err := el.Click(); err != nil {
		if errors.IsPageClosed(err) {
			return false, err
		}
		c.logger.WithError(err).Debug("Interstitial click failed")
		return false, nil
	}
	c.logger.Info("Dismissed story interstitial")
	return true, c.page.Wait(c.cfg.InterstitialSettle)
}

// advance clicks the first visible Next control or presses the right arrow, then settles
func (c *Controller) advance() error {
	clicked, err := c.clickNext()
	if err != nil {
		return err
	}
	if !clicked {
		c.logger.Debug("No Next control, using keyboard")
		if err := c.page.Press(browser.KeyArrowRight); err != nil {
			if errors.IsPageClosed(err) {
				return err
			}
			c.logger.WithError(err).Debug("Arrow key failed")
		}
	}
	return c.page.Wait(c.cfg.AdvanceSettle)
}

func (c *Controller) clickNext() (bool, error) {
	for _, selector := range instagram.NextSelectors {
		el, err := c.page.Query(selector)
		if err != nil {
			if errors.IsPageClosed(err) {
				return false, err
			}
			continue
		}
		if el == nil {
			continue
		}
		if visible, err := el.IsVisible(); err != nil || !visible {
			if errors.IsPageClosed(err) {
				return false, err
			}
			continue
		}
		if err := el.Click(); err != nil {
			if errors.IsPageClosed(err) {
				return false, err
			}
			continue
		}
		return true, nil
	}
	return false, nil
}
