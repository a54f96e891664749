package capture

import (
	stderrors "errors"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/webp"
)

// Verdict is the Validator's decision on one file
type Verdict struct {
	Valid bool
	// Decoded is false when the size proxy or the fail-open path decided
	Decoded    bool
	Brightness float64
	Reason     string
}

// Validator rejects captures that are statistically blank
type Validator struct {
	// BrightnessThreshold is the mean 0-255 brightness below which a decoded image is rejected
	BrightnessThreshold float64
	// MinFileSize is the size proxy used when the format has no registered decoder
	MinFileSize int64
}

// Validate inspects the image at path.
//
// Decode failures of a recognised format fail open and count as valid, so a
// flaky decoder never discards a good capture. Files in a format with no
// registered decoder are judged by size alone.
func (v Validator) Validate(path string) Verdict {
	f, err := os.Open(path)
	if err != nil {
		return Verdict{Valid: true, Reason: "unreadable, accepted"}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		if stderrors.Is(err, image.ErrFormat) {
			return v.sizeProxy(path)
		}
		return Verdict{Valid: true, Reason: "decode failed, accepted"}
	}

	brightness := MeanBrightness(img)
	if brightness < v.BrightnessThreshold {
		return Verdict{Valid: false, Decoded: true, Brightness: brightness, Reason: "too dark"}
	}
	return Verdict{Valid: true, Decoded: true, Brightness: brightness}
}

func (v Validator) sizeProxy(path string) Verdict {
	info, err := os.Stat(path)
	if err != nil {
		return Verdict{Valid: false, Reason: "unreadable"}
	}
	if info.Size() > v.MinFileSize {
		return Verdict{Valid: true}
	}
	return Verdict{Valid: false, Reason: "file too small"}
}

// MeanBrightness returns the mean of the per-channel RGB means on a 0-255 scale.
// Alpha is ignored.
func MeanBrightness(img image.Image) float64 {
	bounds := img.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return 0
	}

	var sum uint64
	switch m := img.(type) {
	case *image.NRGBA:
		sum = sumPix(m.Pix, m.Stride, bounds.Dx(), bounds.Dy())
	case *image.RGBA:
		sum = sumPix(m.Pix, m.Stride, bounds.Dx(), bounds.Dy())
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				sum += uint64(c.R) + uint64(c.G) + uint64(c.B)
			}
		}
	}

	return float64(sum) / float64(3*n)
}

func sumPix(pix []uint8, stride, w, h int) uint64 {
	var sum uint64
	for y := 0; y < h; y++ {
		row := pix[y*stride : y*stride+w*4]
		for i := 0; i < len(row); i += 4 {
			sum += uint64(row[i]) + uint64(row[i+1]) + uint64(row[i+2])
		}
	}
	return sum
}
