package editor

import (
	"context"
	"sync"

	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/repository"
)

// Workspace is a Store over a document repository. It remembers which
// document is current and reads it back on every call, so reloads from the
// backend are visible to the session. A current document the repository can
// no longer read is logged and reported as none.
type Workspace struct {
	repo repository.DocumentRepository

	mu      sync.RWMutex
	current model.DocumentID
}

func NewWorkspace(repo repository.DocumentRepository) *Workspace {
	return &Workspace{repo: repo}
}

func (w *Workspace) CurrentDocument() *model.Document {
	w.mu.RLock()
	id := w.current
	w.mu.RUnlock()

	if id == "" {
		return nil
	}
	doc, err := w.repo.ReadDocument(id)
	if err != nil {
		editorLogger.Error().Err(err).Str("document_id", string(id)).Msg("Failed to read current document")
		return nil
	}
	return doc
}

func (w *Workspace) SetCurrentDocument(doc *model.Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if doc == nil {
		w.current = ""
		return
	}
	w.current = doc.ID
}

func (w *Workspace) UpdateDocument(ctx context.Context, id model.DocumentID, content []byte) error {
	_, err := w.repo.SetDocumentContent(ctx, id, content)
	return err
}
