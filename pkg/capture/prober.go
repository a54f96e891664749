package capture

import (
	"storysnap/pkg/browser"
	"storysnap/pkg/config"
	"storysnap/pkg/errors"
	"storysnap/pkg/logger"
)

// videoReady is HTMLMediaElement.HAVE_ENOUGH_DATA
const videoReady = 4

// Prober waits for the dominant story media to be decoded and pins videos to a still frame
type Prober struct {
	page   browser.Page
	cfg    config.CaptureConfig
	logger logger.Logger
}

// NewProber creates a readiness prober for page
func NewProber(page browser.Page, cfg config.CaptureConfig, log logger.Logger) *Prober {
	return &Prober{page: page, cfg: cfg, logger: log}
}

// WaitReady polls until the media is ready or the attempt budget runs out, then
// pauses every qualifying video on a fixed frame and settles. Readiness is best
// effort: the only error returned is a closed page.
func (p *Prober) WaitReady() (ready bool, err error) {
	polls := 0
	for polls < p.cfg.ReadyPollAttempts {
		polls++
		states, err := p.page.MediaStates()
		if err != nil {
			if errors.IsPageClosed(err) {
				return false, err
			}
			p.logger.WithError(err).Debug("Media state probe failed")
		} else if Ready(states, p.cfg.MinElementSize) {
			ready = true
			break
		}
		if err := p.page.Wait(p.cfg.ReadyPollInterval); err != nil {
			return false, err
		}
	}

	p.logger.DebugWithFields("Media readiness probed", map[string]interface{}{
		"ready": ready,
		"polls": polls,
	})

	if err := p.pinVideos(); err != nil {
		return ready, err
	}
	if err := p.page.Wait(p.cfg.SeekSettle); err != nil {
		return ready, err
	}
	return ready, nil
}

func (p *Prober) pinVideos() error {
	states, err := p.page.MediaStates()
	if err != nil {
		if errors.IsPageClosed(err) {
			return err
		}
		p.logger.WithError(err).Debug("Media state probe failed before seek")
		return nil
	}

	for _, s := range states {
		if s.Kind != browser.MediaVideo || !qualifies(s.Box, p.cfg.MinElementSize) {
			continue
		}
		if err := p.page.PauseAndSeek(s.Index, SeekTime(s.Duration)); err != nil {
			if errors.IsPageClosed(err) {
				return err
			}
			p.logger.WithError(err).Debug("Video seek failed")
		}
	}
	return nil
}

// qualifies applies the readiness size filter; both sides must exceed minSize
func qualifies(box browser.Rect, minSize float64) bool {
	return box.Width > minSize && box.Height > minSize
}

// Ready aggregates one media snapshot. Qualifying videos take precedence and must
// all be fully buffered; otherwise qualifying images must all be complete with a
// nonzero intrinsic width. With nothing qualifying the page is not ready yet.
func Ready(states []browser.MediaState, minSize float64) bool {
	var videos, images []browser.MediaState
	for _, s := range states {
		if !qualifies(s.Box, minSize) {
			continue
		}
		switch s.Kind {
		case browser.MediaVideo:
			videos = append(videos, s)
		case browser.MediaImage:
			images = append(images, s)
		}
	}

	if len(videos) > 0 {
		for _, v := range videos {
			if v.ReadyState < videoReady {
				return false
			}
		}
		return true
	}

	if len(images) > 0 {
		for _, img := range images {
			if !img.Complete || img.NaturalWidth <= 0 {
				return false
			}
		}
		return true
	}

	return false
}

// SeekTime returns the presentation time a video is pinned to: 0.5s for clips
// longer than that, 10% of the duration for shorter ones, 0 (pause only) when
// the duration is unknown.
func SeekTime(duration float64) float64 {
	switch {
	case duration > 0.5:
		return 0.5
	case duration > 0:
		return duration * 0.1
	default:
		return 0
	}
}
