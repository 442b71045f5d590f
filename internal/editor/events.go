package editor

import "github.com/debemdeboas/the-draftroom/internal/model"

type EventKind string

const (
	PlaceholderInserted EventKind = "placeholder-inserted"
	SaveSucceeded       EventKind = "save-succeeded"
	SaveFailed          EventKind = "save-failed"
	DocumentChanged     EventKind = "document-changed"
)

// Event is advisory feedback for the user. Nothing in the editor depends on
// an event being delivered.
type Event struct {
	Kind       EventKind
	DocumentID model.DocumentID
	Code       string
	Err        error
}

type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) {
	f(e)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// MultiNotifier fans an event out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(e Event) {
	for _, n := range m {
		n.Notify(e)
	}
}
