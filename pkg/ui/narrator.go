package ui

import (
	"fmt"
	"strings"
	"sync"

	"storysnap/pkg/traversal"
)

// Narrator prints one line per traversal event and a summary at the end
type Narrator struct {
	console   *Console
	outputDir string
	max       int

	mu     sync.Mutex
	result *traversal.Result
}

// NewNarrator creates a narrator. max is the slide cap shown in progress lines.
func NewNarrator(console *Console, outputDir string, max int) *Narrator {
	if console == nil {
		console = Stdout()
	}
	return &Narrator{console: console, outputDir: outputDir, max: max}
}

// SetOutputDir replaces the output location shown in the summary
func (n *Narrator) SetOutputDir(dir string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outputDir = dir
}

func (n *Narrator) Notify(e traversal.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch e.Kind {
	case traversal.EventSaved:
		n.console.Success(fmt.Sprintf("%s saved %s (%s)", n.progress(e.Slide), e.Path, e.Method))
	case traversal.EventSkipped:
		reason := e.Reason
		if reason == "" {
			reason = "rejected"
		}
		n.console.Warning(fmt.Sprintf("%s skipped: %s", n.progress(e.Slide), reason))
	case traversal.EventInterstitial:
		n.console.Dim("» dismissed \"View story\" prompt")
	case traversal.EventDone:
		if e.Result != nil {
			r := *e.Result
			n.result = &r
			n.summary(r)
		}
	}
}

// Result returns the result of the finished run, or nil before it ends
func (n *Narrator) Result() *traversal.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.result
}

func (n *Narrator) progress(slide int) string {
	if n.max > 0 {
		return fmt.Sprintf("[%03d/%03d]", slide, n.max)
	}
	return fmt.Sprintf("[%03d]", slide)
}

func (n *Narrator) summary(r traversal.Result) {
	lines := []string{
		fmt.Sprintf("Slides attempted: %d", r.Attempted),
		fmt.Sprintf("Saved:            %d", r.Saved),
		fmt.Sprintf("Skipped:          %d", r.Skipped),
	}
	if r.Interstitials > 0 {
		lines = append(lines, fmt.Sprintf("Prompts closed:   %d", r.Interstitials))
	}
	lines = append(lines,
		"Stopped:          "+describe(r.Reason),
		"Output:           "+n.outputDir,
	)
	n.console.Box(lines...)
}

func describe(reason traversal.Reason) string {
	switch reason {
	case traversal.ReasonLeftStory:
		return "story ended"
	case traversal.ReasonMaxStories:
		return "slide limit reached"
	case traversal.ReasonPageClosed:
		return "browser closed"
	case traversal.ReasonInterstitialLimit:
		return "\"View story\" prompt kept returning"
	default:
		return strings.ReplaceAll(string(reason), "_", " ")
	}
}
