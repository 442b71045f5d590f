// Package repository loads and persists documents from the configured backend.
package repository

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/cache"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/rs/zerolog"
)

var ErrDocumentNotFound = errors.New("document not found")

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type DocumentRepository interface {
	// Init loads every document into memory.
	Init(ctx context.Context) error
	GetDocuments(ctx context.Context) ([]model.Document, map[model.DocumentID]*model.Document, error)
	// GetDocumentList returns documents, most recently modified first.
	GetDocumentList() []model.Document
	// ReadDocument returns a copy the caller may modify.
	ReadDocument(id model.DocumentID) (*model.Document, error)
	NewDocument(name string, format model.Format, owner model.UserID) *model.Document
	SaveDocument(ctx context.Context, doc *model.Document) error
	SetDocumentContent(ctx context.Context, id model.DocumentID, content []byte) (*model.Document, error)
	// ReloadDocuments polls the backend until ctx is done.
	ReloadDocuments(ctx context.Context, interval time.Duration)

	// SetReloadNotifier sets a function that will be called when a document changes in the backend.
	SetReloadNotifier(notifier func(model.DocumentID))
}

// index is the in-memory view every backend serves reads from.
type index struct {
	documents *cache.Cache[model.DocumentID, *model.Document]

	mu     sync.RWMutex
	sorted []model.Document

	notifierMu     sync.RWMutex
	reloadNotifier func(model.DocumentID)
}

func newIndex() *index {
	return &index{
		documents: cache.NewCache[model.DocumentID, *model.Document](),
	}
}

func sortDocuments(docs []model.Document) {
	slices.SortStableFunc(docs, func(a, b model.Document) int {
		return -a.ModifiedDate.Compare(b.ModifiedDate)
	})
}

func (x *index) replace(docs []model.Document, docMap map[model.DocumentID]*model.Document) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.sorted = docs
	x.documents.SetTo(docMap)
}

func (x *index) GetDocumentList() []model.Document {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return slices.Clone(x.sorted)
}

func (x *index) ReadDocument(id model.DocumentID) (*model.Document, error) {
	doc, ok := x.documents.Get(id)
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

// put stores doc as the latest version of its id.
func (x *index) put(doc *model.Document) {
	x.mu.Lock()
	defer x.mu.Unlock()

	stored := doc.Clone()
	x.documents.Set(doc.ID, stored)

	i := slices.IndexFunc(x.sorted, func(d model.Document) bool { return d.ID == doc.ID })
	if i >= 0 {
		x.sorted[i] = *stored
	} else {
		x.sorted = append(x.sorted, *stored)
	}
	sortDocuments(x.sorted)
}

func (x *index) SetReloadNotifier(notifier func(model.DocumentID)) {
	x.notifierMu.Lock()
	defer x.notifierMu.Unlock()
	x.reloadNotifier = notifier
}

func (x *index) notifyReload(id model.DocumentID) {
	x.notifierMu.RLock()
	notifier := x.reloadNotifier
	x.notifierMu.RUnlock()
	if notifier != nil {
		notifier(id)
	}
}

// reconcile swaps in freshly loaded documents when anything differs from the
// cached set and notifies for each document whose content changed.
func (x *index) reconcile(docs []model.Document, docMap map[model.DocumentID]*model.Document) bool {
	x.mu.RLock()
	cached := make(map[model.DocumentID]string, len(x.sorted))
	for _, d := range x.sorted {
		cached[d.ID] = d.ContentHash
	}
	x.mu.RUnlock()

	hasChanges := len(docs) != len(cached)
	if hasChanges {
		repoLogger.Info().Msg("Number of documents changed")
	}

	for _, doc := range docs {
		hash, exists := cached[doc.ID]
		switch {
		case !exists:
			hasChanges = true
			repoLogger.Info().
				Str("document_id", string(doc.ID)).
				Str("name", doc.GetName()).
				Msg("New document detected")
		case hash != doc.ContentHash:
			hasChanges = true
			repoLogger.Info().
				Str("document_id", string(doc.ID)).
				Str("name", doc.GetName()).
				Msg("Document content changed, reloading")
			go x.notifyReload(doc.ID)
		}
	}

	if hasChanges {
		x.replace(docs, docMap)
	}
	return hasChanges
}

// poll runs check every interval until ctx is done.
func poll(ctx context.Context, interval time.Duration, check func(ctx context.Context)) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check(ctx)
		}
	}
}

func newDocument(id model.DocumentID, name string, format model.Format, owner model.UserID) *model.Document {
	now := time.Now().UTC()
	doc := &model.Document{
		ID:           id,
		Name:         name,
		Format:       format,
		Owner:        owner,
		CreatedDate:  now,
		ModifiedDate: now,
	}
	doc.SetContent([]byte{})
	return doc
}
