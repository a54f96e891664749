package traversal

import "time"

// EventKind classifies a traversal event
type EventKind string

const (
	EventSaved        EventKind = "saved"
	EventSkipped      EventKind = "skipped"
	EventInterstitial EventKind = "interstitial"
	EventDone         EventKind = "done"
)

// Event reports one step of a traversal to observers
type Event struct {
	Kind   EventKind `json:"kind"`
	Time   time.Time `json:"time"`
	URL    string    `json:"url,omitempty"`
	Slide  int       `json:"slide"`
	Path   string    `json:"path,omitempty"`
	Method string    `json:"method,omitempty"`
	Reason string    `json:"reason,omitempty"`
	// Result is set on EventDone
	Result *Result `json:"result,omitempty"`
}

// Notifier observes traversal events. Notify must not block for long: the
// controller calls it inline between slides.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// Notifiers fans an event out to several notifiers in order
type Notifiers []Notifier

func (n Notifiers) Notify(e Event) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(e)
		}
	}
}
