package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"storysnap/pkg/browser"
)

// solidPNG encodes a w x h image filled with one gray level
func solidPNG(t *testing.T, w, h int, level uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: level, G: level, B: level, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func video(index int, w, h float64, readyState int, duration float64) browser.MediaState {
	return browser.MediaState{
		Kind:       browser.MediaVideo,
		Index:      index,
		Box:        browser.Rect{Width: w, Height: h},
		ReadyState: readyState,
		Duration:   duration,
	}
}

func img(index int, w, h float64, complete bool, naturalWidth int) browser.MediaState {
	return browser.MediaState{
		Kind:         browser.MediaImage,
		Index:        index,
		Box:          browser.Rect{Width: w, Height: h},
		Complete:     complete,
		NaturalWidth: naturalWidth,
	}
}
