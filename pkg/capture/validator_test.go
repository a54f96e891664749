package capture

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestValidatorBrightness(t *testing.T) {
	v := Validator{BrightnessThreshold: 20, MinFileSize: 50_000}

	tests := []struct {
		name  string
		level uint8
		valid bool
	}{
		{"black placeholder", 0, false},
		{"very dark", 19, false},
		{"at threshold", 20, true},
		{"normal frame", 128, true},
		{"white", 255, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "001.png", solidPNG(t, 8, 8, tt.level))
			verdict := v.Validate(path)
			assert.Equal(t, tt.valid, verdict.Valid)
			assert.True(t, verdict.Decoded)
			assert.InDelta(t, float64(tt.level), verdict.Brightness, 1e-9)
		})
	}
}

func TestValidatorFailsOpenOnDecodeError(t *testing.T) {
	v := Validator{BrightnessThreshold: 20, MinFileSize: 50_000}
	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	verdict := v.Validate(writeFile(t, "001.png", corrupt))
	assert.True(t, verdict.Valid)
	assert.False(t, verdict.Decoded)
}

func TestValidatorSizeProxyForUnknownFormat(t *testing.T) {
	v := Validator{BrightnessThreshold: 20, MinFileSize: 50_000}

	small := writeFile(t, "001.png", bytes.Repeat([]byte("x"), 1000))
	assert.False(t, v.Validate(small).Valid)

	large := writeFile(t, "002.png", bytes.Repeat([]byte("x"), 50_001))
	assert.True(t, v.Validate(large).Valid)

	boundary := writeFile(t, "003.png", bytes.Repeat([]byte("x"), 50_000))
	assert.False(t, v.Validate(boundary).Valid)
}

func TestMeanBrightnessIgnoresAlpha(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	m.SetNRGBA(0, 0, color.NRGBA{R: 30, G: 60, B: 90, A: 0})
	m.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	assert.InDelta(t, 30.0, MeanBrightness(m), 1e-9)

	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = 100
	}
	assert.InDelta(t, 100.0, MeanBrightness(gray), 1e-9)
}
