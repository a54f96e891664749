package capture

import (
	"bytes"
	"io"

	"storysnap/pkg/browser"
	"storysnap/pkg/config"
	"storysnap/pkg/errors"
	"storysnap/pkg/logger"
)

// Method names the strategy that produced a capture
type Method string

const (
	MethodElement Method = "element"
	MethodClip    Method = "clip"
)

// Outcome describes one Capture call. Path is set only when Accepted.
type Outcome struct {
	Accepted   bool
	Path       string
	Method     Method
	Width      int
	Height     int
	Brightness float64
	Reason     string
}

// SlideStore persists and removes slide files
type SlideStore interface {
	SaveSlide(index int, r io.Reader) (string, error)
	SlidePath(index int) string
	Discard(path string) error
}

// Capturer produces zero or one validated file per slide
type Capturer struct {
	page      browser.Page
	store     SlideStore
	prober    *Prober
	validator Validator
	cfg       config.CaptureConfig
	logger    logger.Logger
}

// NewCapturer wires a capturer for page
func NewCapturer(page browser.Page, store SlideStore, cfg config.CaptureConfig, log logger.Logger) *Capturer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "capture")

	return &Capturer{
		page:   page,
		store:  store,
		prober: NewProber(page, cfg, log),
		validator: Validator{
			BrightnessThreshold: cfg.BrightnessThreshold,
			MinFileSize:         cfg.MinFileSize,
		},
		cfg:    cfg,
		logger: log,
	}
}

// Capture runs readiness probing, element location and screenshotting for the
// 0-based slide index. A failed element screenshot falls back to the viewport
// clip. On return the slide's file exists if and only if the outcome is accepted.
func (c *Capturer) Capture(index int) (Outcome, error) {
	outcome, err := c.capture(index)
	if !outcome.Accepted {
		c.clear(index)
	}
	return outcome, err
}

func (c *Capturer) capture(index int) (Outcome, error) {
	if _, err := c.prober.WaitReady(); err != nil {
		return Outcome{}, err
	}

	target, err := Locate(c.page, c.cfg.MinElementSize)
	if err != nil {
		return Outcome{}, err
	}

	if target != nil {
		outcome, ok, err := c.captureElement(index, target)
		if err != nil || ok {
			return outcome, err
		}
	}

	return c.captureClip(index)
}

// captureElement reports ok=false when the clip fallback should run
func (c *Capturer) captureElement(index int, target *Target) (Outcome, bool, error) {
	log := c.logger.WithField("slide", index+1)

	data, err := target.Element.Screenshot()
	if err == nil && len(data) == 0 {
		err = errors.New(errors.ErrorTypeCapture, "empty element screenshot")
	}
	if err != nil {
		if errors.IsPageClosed(err) {
			return Outcome{}, false, err
		}
		log.WithError(err).Warn("Element screenshot failed, trying clip")
		return Outcome{}, false, nil
	}

	path, err := c.store.SaveSlide(index, bytes.NewReader(data))
	if err != nil {
		log.WithError(err).Warn("Saving element screenshot failed, trying clip")
		return Outcome{}, false, nil
	}

	outcome := c.judge(path, Outcome{
		Method: MethodElement,
		Width:  int(target.Box.Width),
		Height: int(target.Box.Height),
	})
	return outcome, true, nil
}

func (c *Capturer) captureClip(index int) (Outcome, error) {
	vp, err := c.page.ViewportSize()
	if err != nil && errors.IsPageClosed(err) {
		return Outcome{}, err
	}
	if err != nil || vp == nil {
		return Outcome{Method: MethodClip, Reason: errors.ErrNoViewport.Message}, nil
	}

	clip, ok := ClipRegion(*vp, c.cfg.ClipWidth, c.cfg.ClipMargin)
	if !ok {
		return Outcome{Method: MethodClip, Reason: "viewport too small for clip"}, nil
	}

	data, err := c.page.ScreenshotClip(clip)
	if err != nil {
		if errors.IsPageClosed(err) {
			return Outcome{}, err
		}
		return Outcome{}, errors.Wrap(errors.ErrorTypeCapture, "clip screenshot", err)
	}

	path, err := c.store.SaveSlide(index, bytes.NewReader(data))
	if err != nil {
		return Outcome{}, err
	}

	return c.judge(path, Outcome{
		Method: MethodClip,
		Width:  int(clip.Width),
		Height: int(clip.Height),
	}), nil
}

// clear removes whatever sits at the slide path, including files left by an
// earlier run in the same bucket
func (c *Capturer) clear(index int) {
	if err := c.store.Discard(c.store.SlidePath(index)); err != nil {
		c.logger.WithError(err).Error("Failed to clear slide path")
	}
}

// judge validates a saved file, discarding it on rejection
func (c *Capturer) judge(path string, outcome Outcome) Outcome {
	verdict := c.validator.Validate(path)
	outcome.Brightness = verdict.Brightness

	if !verdict.Valid {
		if err := c.store.Discard(path); err != nil {
			c.logger.WithError(err).Error("Failed to discard rejected capture")
		}
		outcome.Reason = verdict.Reason
		return outcome
	}

	outcome.Accepted = true
	outcome.Path = path
	return outcome
}

// ClipRegion computes the fallback screenshot rectangle: a fixed-width column
// with a 9:16 aspect capped at viewport height minus margin, centred horizontally
// and vertically. Coordinates are floored to whole pixels. ok is false when the
// viewport leaves no room for a clip.
func ClipRegion(vp browser.Size, width, margin int) (browser.Rect, bool) {
	height := min(width*16/9, vp.Height-margin)
	if width <= 0 || height <= 0 {
		return browser.Rect{}, false
	}

	x := max(0, vp.Width/2-width/2)
	y := max(0, (vp.Height-height)/2)

	return browser.Rect{
		X:      float64(x),
		Y:      float64(y),
		Width:  float64(width),
		Height: float64(height),
	}, true
}
