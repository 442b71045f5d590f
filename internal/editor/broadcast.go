package editor

import (
	"github.com/debemdeboas/the-draftroom/internal/sse"
)

// EventToast is the SSE event name the editor page shows as a toast.
const EventToast = "toast"

type toast struct {
	Kind    EventKind `json:"kind"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
	Error   bool      `json:"error"`
}

func toastFor(e Event) toast {
	t := toast{Kind: e.Kind, Code: e.Code}
	switch e.Kind {
	case PlaceholderInserted:
		t.Message = "Inserted " + e.Code
	case SaveSucceeded:
		t.Message = "Document saved"
	case SaveFailed:
		t.Message = "Save failed"
		t.Error = true
	case DocumentChanged:
		t.Message = "Document loaded"
	}
	return t
}

// BroadcastNotifier pushes events to the browsers watching the document.
type BroadcastNotifier struct {
	Clients *sse.SSEClients
}

func (b BroadcastNotifier) Notify(e Event) {
	if b.Clients == nil || e.DocumentID == "" {
		return
	}
	if err := b.Clients.BroadcastJSON(e.DocumentID, EventToast, toastFor(e)); err != nil {
		editorLogger.Error().Err(err).Str("event", string(e.Kind)).Msg("Failed to broadcast editor event")
	}
}

// LogNotifier writes every event to the editor logger.
type LogNotifier struct{}

func (LogNotifier) Notify(e Event) {
	ev := editorLogger.Debug()
	if e.Err != nil {
		ev = editorLogger.Warn().Err(e.Err)
	}
	ev.Str("event", string(e.Kind)).
		Str("document_id", string(e.DocumentID)).
		Str("code", e.Code).
		Msg("Editor event")
}
