package traversal

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storysnap/pkg/browser"
	"storysnap/pkg/browser/browsertest"
	"storysnap/pkg/capture"
	"storysnap/pkg/config"
	"storysnap/pkg/errors"
	"storysnap/pkg/instagram"
	"storysnap/pkg/logger"
)

const storyURL = "https://www.instagram.com/stories/someone/3141592653/"

// scriptedCapturer accepts every slide unless told otherwise
type scriptedCapturer struct {
	calls    []int
	rejected map[int]bool
	errs     map[int]error
	onCall   func(index int)
}

func (s *scriptedCapturer) Capture(index int) (capture.Outcome, error) {
	s.calls = append(s.calls, index)
	if s.onCall != nil {
		s.onCall(index)
	}
	if err := s.errs[index]; err != nil {
		return capture.Outcome{}, err
	}
	if s.rejected[index] {
		return capture.Outcome{Method: capture.MethodClip, Reason: "too dark"}, nil
	}
	return capture.Outcome{
		Accepted: true,
		Method:   capture.MethodElement,
		Path:     fmt.Sprintf("pics/2026-10-19/%03d.png", index+1),
	}, nil
}

type recorder struct{ events []Event }

func (r *recorder) Notify(e Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []EventKind {
	var kinds []EventKind
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func newController(page *browsertest.Page, c SlideCapturer, max int, n Notifier) *Controller {
	return NewController(page, c, max, config.DefaultConfig().Capture, n, logger.NewTestLogger())
}

func TestRunStopsWhenStoryEnds(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	presses := 0
	page.OnPress = func(key string) {
		presses++
		if presses == 3 {
			page.SetURL("https://www.instagram.com/")
		}
	}
	capturer := &scriptedCapturer{}

	res, err := newController(page, capturer, 50, nil).Run()
	require.NoError(t, err)

	assert.Equal(t, Result{Attempted: 3, Saved: 3, Reason: ReasonLeftStory}, res)
	assert.Equal(t, []int{0, 1, 2}, capturer.calls)
	assert.Equal(t, []string{browser.KeyArrowRight, browser.KeyArrowRight, browser.KeyArrowRight}, page.Keys())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, page.Waits())
}

func TestRunHonoursMaxStories(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	capturer := &scriptedCapturer{rejected: map[int]bool{1: true}}

	res, err := newController(page, capturer, 4, nil).Run()
	require.NoError(t, err)

	assert.Equal(t, 4, res.Attempted)
	assert.Equal(t, 3, res.Saved)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, ReasonMaxStories, res.Reason)
	assert.Len(t, page.Keys(), 4)
}

func TestRunNotOnStory(t *testing.T) {
	page := browsertest.NewPage("https://www.instagram.com/accounts/login/")
	capturer := &scriptedCapturer{}

	res, err := newController(page, capturer, 50, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, ReasonLeftStory, res.Reason)
	assert.Zero(t, res.Attempted)
	assert.Empty(t, capturer.calls)
}

func TestRunDismissesInterstitialWithoutCounting(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	overlay := browsertest.NewElement(600, 400, 120, 40)
	overlay.OnClick = func() { delete(page.Texts, instagram.InterstitialPattern) }
	page.Texts[instagram.InterstitialPattern] = []*browsertest.Element{overlay}

	capturer := &scriptedCapturer{}
	rec := &recorder{}
	res, err := newController(page, capturer, 2, rec).Run()
	require.NoError(t, err)

	assert.Equal(t, 1, overlay.Clicks())
	assert.Equal(t, 1, res.Interstitials)
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, []int{0, 1}, capturer.calls)
	assert.Equal(t, 3*time.Second, page.Waits()[0])
	assert.Equal(t, []EventKind{EventInterstitial, EventSaved, EventSaved, EventDone}, rec.kinds())
}

func TestRunIgnoresZeroWidthInterstitial(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	hidden := browsertest.NewElement(0, 0, 0, 40)
	page.Texts[instagram.InterstitialPattern] = []*browsertest.Element{hidden}

	res, err := newController(page, &scriptedCapturer{}, 1, nil).Run()
	require.NoError(t, err)
	assert.Zero(t, hidden.Clicks())
	assert.Zero(t, res.Interstitials)
	assert.Equal(t, 1, res.Attempted)
}

func TestRunInterstitialLimit(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	overlay := browsertest.NewElement(600, 400, 120, 40)
	page.Texts[instagram.InterstitialPattern] = []*browsertest.Element{overlay}

	capturer := &scriptedCapturer{}
	res, err := newController(page, capturer, 50, nil).Run()
	require.NoError(t, err)

	assert.Equal(t, ReasonInterstitialLimit, res.Reason)
	assert.Equal(t, 10, res.Interstitials)
	assert.Equal(t, 10, overlay.Clicks())
	assert.Zero(t, res.Attempted)
	assert.Empty(t, capturer.calls)
}

func TestRunInterstitialStreakResetsAfterCapture(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	overlay := browsertest.NewElement(600, 400, 120, 40)
	cfg := config.DefaultConfig().Capture
	cfg.MaxInterstitials = 1

	// one interstitial before every slide
	overlay.OnClick = func() { delete(page.Texts, instagram.InterstitialPattern) }
	show := func() { page.Texts[instagram.InterstitialPattern] = []*browsertest.Element{overlay} }
	show()
	page.OnPress = func(string) { show() }

	res, err := NewController(page, &scriptedCapturer{}, 3, cfg, nil, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, ReasonMaxStories, res.Reason)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 3, res.Interstitials)
}

func TestAdvancePrefersVisibleNextControl(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	button := browsertest.NewElement(1200, 450, 30, 30)
	button.Visible = false
	div := browsertest.NewElement(1200, 450, 30, 30)
	div.OnClick = func() { page.SetURL("https://www.instagram.com/") }
	page.Add("button[aria-label='Next']", button)
	page.Add("div[aria-label='Next']", div)

	res, err := newController(page, &scriptedCapturer{}, 50, nil).Run()
	require.NoError(t, err)

	assert.Zero(t, button.Clicks())
	assert.Equal(t, 1, div.Clicks())
	assert.Empty(t, page.Keys())
	assert.Equal(t, ReasonLeftStory, res.Reason)
	assert.Equal(t, 1, res.Attempted)
}

func TestAdvanceFallsBackToKeyboardWhenClickFails(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	button := browsertest.NewElement(1200, 450, 30, 30)
	button.ClickErr = stderrors.New("element is covered")
	page.Add("button[aria-label='Next']", button)

	_, err := newController(page, &scriptedCapturer{}, 1, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, []string{browser.KeyArrowRight}, page.Keys())
}

func TestRunPageClosedIsGraceful(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	capturer := &scriptedCapturer{
		errs: map[int]error{2: errors.Wrap(errors.ErrorTypePageClosed, "screenshot", stderrors.New("target closed"))},
	}
	rec := &recorder{}

	res, err := newController(page, capturer, 50, rec).Run()
	require.NoError(t, err)
	assert.Equal(t, ReasonPageClosed, res.Reason)
	assert.Equal(t, 2, res.Attempted)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, EventDone, last.Kind)
	require.NotNil(t, last.Result)
	assert.Equal(t, res, *last.Result)
}

func TestRunPageClosedWhileAdvancing(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	capturer := &scriptedCapturer{onCall: func(int) { page.Close() }}

	res, err := newController(page, capturer, 50, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, ReasonPageClosed, res.Reason)
	assert.Equal(t, 1, res.Attempted)
}

func TestRunUnexpectedErrorIsFatal(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	boom := errors.Wrap(errors.ErrorTypeCapture, "clip screenshot", stderrors.New("protocol error"))
	capturer := &scriptedCapturer{errs: map[int]error{1: boom}}

	res, err := newController(page, capturer, 50, nil).Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.Attempted)
}

func TestRunEvents(t *testing.T) {
	page := browsertest.NewPage(storyURL)
	capturer := &scriptedCapturer{rejected: map[int]bool{0: true}}
	rec := &recorder{}

	_, err := newController(page, capturer, 2, rec).Run()
	require.NoError(t, err)

	require.Equal(t, []EventKind{EventSkipped, EventSaved, EventDone}, rec.kinds())
	assert.Equal(t, 1, rec.events[0].Slide)
	assert.Equal(t, "too dark", rec.events[0].Reason)
	assert.Equal(t, "pics/2026-10-19/002.png", rec.events[1].Path)
	assert.Equal(t, storyURL, rec.events[1].URL)
	assert.Equal(t, string(ReasonMaxStories), rec.events[2].Reason)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "check_interstitial", StateCheckInterstitial.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "unknown", State(42).String())
}
