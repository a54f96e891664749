package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storysnap/pkg/browser"
	"storysnap/pkg/browser/browsertest"
	"storysnap/pkg/config"
	"storysnap/pkg/errors"
	"storysnap/pkg/logger"
)

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		states []browser.MediaState
		want   bool
	}{
		{"nothing on page", nil, false},
		{"only tiny media", []browser.MediaState{img(0, 40, 40, true, 40), video(0, 150, 400, 4, 5)}, false},
		{"buffered video", []browser.MediaState{video(0, 390, 693, 4, 5)}, true},
		{"video still loading", []browser.MediaState{video(0, 390, 693, 3, 5)}, false},
		{"videos override ready images", []browser.MediaState{img(0, 390, 693, true, 1080), video(0, 390, 693, 2, 5)}, false},
		{"every video must be buffered", []browser.MediaState{video(0, 390, 693, 4, 5), video(1, 200, 200, 1, 5)}, false},
		{"decoded image", []browser.MediaState{img(0, 390, 693, true, 1080)}, true},
		{"image without intrinsic size", []browser.MediaState{img(0, 390, 693, true, 0)}, false},
		{"incomplete image", []browser.MediaState{img(0, 390, 693, false, 1080)}, false},
		{"small loading image ignored", []browser.MediaState{img(0, 390, 693, true, 1080), img(1, 32, 32, false, 0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ready(tt.states, 150))
		})
	}
}

func TestSeekTime(t *testing.T) {
	assert.Equal(t, 0.5, SeekTime(15))
	assert.InDelta(t, 0.05, SeekTime(0.5), 1e-9)
	assert.InDelta(t, 0.03, SeekTime(0.3), 1e-9)
	assert.Equal(t, 0.0, SeekTime(0))
	assert.Equal(t, 0.5, SeekTime(1e9))
}

func TestProberReadyOnFirstPoll(t *testing.T) {
	page := browsertest.NewPage("https://www.instagram.com/stories/someone/1/")
	page.SetMedia(video(0, 390, 693, 4, 0.3))

	cfg := config.DefaultConfig().Capture
	ready, err := NewProber(page, cfg, logger.NewNopLogger()).WaitReady()
	require.NoError(t, err)
	assert.True(t, ready)

	// one readiness poll plus the snapshot taken before seeking
	assert.Equal(t, 2, page.MediaCalls())
	assert.Equal(t, []time.Duration{cfg.SeekSettle}, page.Waits())

	seeks := page.Seeks()
	require.Len(t, seeks, 1)
	assert.Equal(t, 0, seeks[0].Index)
	assert.InDelta(t, 0.03, seeks[0].At, 1e-9)
}

func TestProberGivesUpAfterAttempts(t *testing.T) {
	page := browsertest.NewPage("https://www.instagram.com/stories/someone/1/")

	cfg := config.DefaultConfig().Capture
	ready, err := NewProber(page, cfg, logger.NewNopLogger()).WaitReady()
	require.NoError(t, err)
	assert.False(t, ready)

	assert.Equal(t, cfg.ReadyPollAttempts+1, page.MediaCalls())
	waits := page.Waits()
	require.Len(t, waits, cfg.ReadyPollAttempts+1)
	for _, w := range waits[:cfg.ReadyPollAttempts] {
		assert.Equal(t, cfg.ReadyPollInterval, w)
	}
	assert.Equal(t, cfg.SeekSettle, waits[len(waits)-1])
	assert.Empty(t, page.Seeks())
}

func TestProberBecomesReady(t *testing.T) {
	page := browsertest.NewPage("https://www.instagram.com/stories/someone/1/")
	page.MediaFunc = func(call int) []browser.MediaState {
		if call < 2 {
			return []browser.MediaState{video(1, 390, 693, 2, 12), video(0, 100, 100, 0, 3)}
		}
		return []browser.MediaState{video(1, 390, 693, 4, 12), video(0, 100, 100, 0, 3)}
	}

	cfg := config.DefaultConfig().Capture
	ready, err := NewProber(page, cfg, logger.NewNopLogger()).WaitReady()
	require.NoError(t, err)
	assert.True(t, ready)

	assert.Equal(t, []time.Duration{cfg.ReadyPollInterval, cfg.ReadyPollInterval, cfg.SeekSettle}, page.Waits())
	// only the large video is pinned
	assert.Equal(t, []browsertest.Seek{{Index: 1, At: 0.5}}, page.Seeks())
}

func TestProberPageClosed(t *testing.T) {
	page := browsertest.NewPage("https://www.instagram.com/stories/someone/1/")
	page.Close()

	_, err := NewProber(page, config.DefaultConfig().Capture, logger.NewNopLogger()).WaitReady()
	assert.True(t, errors.IsPageClosed(err))
}
