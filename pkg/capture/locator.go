package capture

import (
	"storysnap/pkg/browser"
	"storysnap/pkg/errors"
)

// candidateTags are scanned in this order; on equal areas the earlier element wins
var candidateTags = []string{"img", "video", "canvas"}

// Target is the element chosen as the story frame
type Target struct {
	Element browser.Element
	Box     browser.Rect
}

// Locate returns the largest rendered img, video or canvas whose sides are both at
// least minSize, or nil when none qualifies. Elements whose box cannot be read are
// skipped. Only a closed page is reported as an error.
func Locate(page browser.Page, minSize float64) (*Target, error) {
	var best *Target
	bestArea := 0.0

	for _, tag := range candidateTags {
		elements, err := page.QueryAll(tag)
		if err != nil {
			if errors.IsPageClosed(err) {
				return nil, err
			}
			continue
		}

		for _, el := range elements {
			box, err := el.BoundingBox()
			if err != nil || box == nil {
				continue
			}
			if box.Width < minSize || box.Height < minSize {
				continue
			}
			if area := box.Area(); area > bestArea {
				bestArea = area
				best = &Target{Element: el, Box: *box}
			}
		}
	}

	return best, nil
}
