package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"storysnap/pkg/errors"
)

// MediaStatesScript serialises every img and video element on the page.
// Durations that JSON cannot carry are mapped: NaN to 0, Infinity to 1e9.
const MediaStatesScript = `() => {
	const out = [];
	const collect = (kind, selector) => {
		document.querySelectorAll(selector).forEach((el, index) => {
			const r = el.getBoundingClientRect();
			let duration = 0;
			if (kind === 'video') {
				const d = el.duration;
				duration = d === Infinity ? 1e9 : (Number.isFinite(d) ? d : 0);
			}
			out.push({
				kind, index,
				box: { x: r.x, y: r.y, width: r.width, height: r.height },
				readyState: kind === 'video' ? el.readyState : 0,
				complete: kind === 'image' ? !!el.complete : false,
				naturalWidth: kind === 'image' ? (el.naturalWidth || 0) : 0,
				duration,
			});
		});
	};
	collect('video', 'video');
	collect('image', 'img');
	return JSON.stringify(out);
}`

// PauseAndSeekScript takes [index, at]
const PauseAndSeekScript = `([index, at]) => {
	const v = document.querySelectorAll('video')[index];
	if (!v) return false;
	v.pause();
	if (at > 0) v.currentTime = at;
	return true;
}`

// MarkTextMatchesScript tags elements whose trimmed innerText matches the
// case-insensitive pattern with a data attribute and returns how many it tagged.
// Drivers then fetch them with TextMatchSelector.
const MarkTextMatchesScript = `(pattern) => {
	document.querySelectorAll('[data-storysnap-text]').forEach(el => el.removeAttribute('data-storysnap-text'));
	const re = new RegExp(pattern, 'i');
	let n = 0;
	for (const el of document.querySelectorAll('*')) {
		const text = el.innerText;
		if (typeof text === 'string' && re.test(text.trim())) {
			el.setAttribute('data-storysnap-text', String(n++));
		}
	}
	return n;
}`

// TextMatchSelector selects the elements tagged by MarkTextMatchesScript
const TextMatchSelector = "[data-storysnap-text]"

// DecodeMediaStates parses the JSON produced by MediaStatesScript
func DecodeMediaStates(raw string) ([]MediaState, error) {
	var states []MediaState
	if err := json.Unmarshal([]byte(raw), &states); err != nil {
		return nil, fmt.Errorf("decode media states: %w", err)
	}
	return states, nil
}

var closedMarkers = []string{
	"target page, context or browser has been closed",
	"target closed",
	"browser has been closed",
	"context has been closed",
	"session closed",
	"websocket: close",
	"use of closed network connection",
}

// IsClosedMessage reports whether a driver error message means the page is gone
func IsClosedMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range closedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ClassifyError wraps err as ErrPageClosed when it reports a closed target,
// otherwise it is returned unchanged
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsPageClosed(err) {
		return err
	}
	if IsClosedMessage(err.Error()) {
		return errors.Wrap(errors.ErrorTypePageClosed, op, err)
	}
	return err
}
