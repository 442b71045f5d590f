// Package editor owns the draft being edited, placeholder insertion and the save cycle.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/debemdeboas/the-draftroom/internal/metrics"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/util"
)

var (
	ErrNoDocument     = errors.New("no active document")
	ErrSaveInProgress = errors.New("save already in progress")
	ErrSerialization  = errors.New("serialization failed")
	ErrPersistence    = errors.New("persistence failed")
	ErrNoSerializer   = errors.New("no rich editor attached")

	ErrDocumentMismatch = errors.New("document is not the one open in this session")
)

type Status int

const (
	StatusIdle Status = iota
	StatusSaving
)

func (s Status) String() string {
	switch s {
	case StatusSaving:
		return "saving"
	default:
		return "idle"
	}
}

// Store is the document store the session reads from and saves to.
type Store interface {
	CurrentDocument() *model.Document
	SetCurrentDocument(doc *model.Document)
	UpdateDocument(ctx context.Context, id model.DocumentID, content []byte) error
}

type SessionID string

// Session is one user's editing state. The mutex is never held while a save
// waits on the saver or the store.
type Session struct {
	ID SessionID

	mu         sync.Mutex
	draft      []byte
	cursor     int
	syncedID   model.DocumentID
	syncedHash string
	status     Status
	lastSeen   time.Time

	store    Store
	notifier Notifier
}

func NewSession(id SessionID, store Store, notifier Notifier) *Session {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Session{
		ID:       id,
		draft:    []byte{},
		lastSeen: time.Now(),
		store:    store,
		notifier: notifier,
	}
}

func (s *Session) Store() Store {
	return s.store
}

func (s *Session) Draft() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.draft...)
}

// SetDraft records what the user typed. The cursor is kept inside the draft.
func (s *Session) SetDraft(content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = append([]byte(nil), content...)
	s.cursor = min(s.cursor, len(s.draft))
}

// Expect returns ErrDocumentMismatch unless id is the synced document. An
// empty id is not checked.
func (s *Session) Expect(id model.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expectLocked(id)
}

// SetDraftFor is SetDraft for a browser editing document id. The draft is
// left alone when another document has been opened since.
func (s *Session) SetDraftFor(id model.DocumentID, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expectLocked(id); err != nil {
		return err
	}
	s.draft = append([]byte(nil), content...)
	s.cursor = min(s.cursor, len(s.draft))
	return nil
}

func (s *Session) expectLocked(id model.DocumentID) error {
	if id != "" && id != s.syncedID {
		return fmt.Errorf("%w: %s open, got %s", ErrDocumentMismatch, s.syncedID, id)
	}
	return nil
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Characters counts runes, not bytes.
func (s *Session) Characters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return utf8.RuneCount(s.draft)
}

func (s *Session) SyncedDocumentID() model.DocumentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncedID
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Resync brings the draft in line with doc. A different document always
// replaces the draft, even when its content is empty, so the draft never
// holds text from a document other than the synced one. The same document
// replaces it only when the stored content changed and is non-empty. Returns
// whether the draft was replaced.
func (s *Session) Resync(doc *model.Document) bool {
	s.mu.Lock()

	if doc == nil {
		changed := s.syncedID != "" || len(s.draft) > 0
		s.draft = []byte{}
		s.cursor = 0
		s.syncedID = ""
		s.syncedHash = ""
		s.mu.Unlock()
		return changed
	}

	hash := util.ContentHash(doc.Content)
	switch {
	case doc.ID != s.syncedID:
	case hash != s.syncedHash && len(doc.Content) > 0:
	default:
		s.mu.Unlock()
		return false
	}

	s.draft = append([]byte(nil), doc.Content...)
	s.cursor = len(s.draft)
	s.syncedID = doc.ID
	s.syncedHash = hash
	s.mu.Unlock()

	s.notifier.Notify(Event{Kind: DocumentChanged, DocumentID: doc.ID})
	return true
}

// Sync resyncs against the store's current document.
func (s *Session) Sync() bool {
	return s.Resync(s.store.CurrentDocument())
}

// Open makes doc the current document and loads it into the draft.
func (s *Session) Open(doc *model.Document) bool {
	s.store.SetCurrentDocument(doc)
	return s.Sync()
}

// NavigateBack clears the current document. Unsaved edits are dropped.
func (s *Session) NavigateBack() {
	s.store.SetCurrentDocument(nil)
	s.Resync(nil)
}

// InsertPlaceholder replaces the surface's selection with code and returns the
// new cursor, just past the token. With no surface the token is appended
// after a space. An empty code changes nothing.
func (s *Session) InsertPlaceholder(surface Surface, code string) int {
	if code == "" {
		return s.Cursor()
	}

	if surface == nil {
		s.mu.Lock()
		next := make([]byte, 0, len(s.draft)+1+len(code))
		next = append(next, s.draft...)
		next = append(next, ' ')
		next = append(next, code...)
		s.draft = next
		s.cursor = len(next)
		cursor := s.cursor
		s.mu.Unlock()

		metrics.PlaceholderInserts.WithLabelValues(metrics.ModeAppend).Inc()
		return cursor
	}

	start, end := surface.Selection()

	s.mu.Lock()
	start, end = clampSelection(start, end, len(s.draft))
	next := make([]byte, 0, len(s.draft)-(end-start)+len(code))
	next = append(next, s.draft[:start]...)
	next = append(next, code...)
	next = append(next, s.draft[end:]...)
	s.draft = next
	s.cursor = start + len(code)
	cursor := s.cursor
	docID := s.syncedID
	s.mu.Unlock()

	surface.AfterRender(func() {
		surface.Focus()
		surface.SetCursor(cursor)
	})
	s.notifier.Notify(Event{Kind: PlaceholderInserted, DocumentID: docID, Code: code})
	metrics.PlaceholderInserts.WithLabelValues(metrics.ModeAtCursor).Inc()

	return cursor
}

// Save persists the current document through saver. Only one save runs at a
// time; a second call while saving returns ErrSaveInProgress. Failures leave
// the draft untouched. The status is back to idle when Save returns.
func (s *Session) Save(ctx context.Context, saver Saver) error {
	doc := s.store.CurrentDocument()
	if doc == nil {
		return ErrNoDocument
	}

	s.mu.Lock()
	if s.status == StatusSaving {
		s.mu.Unlock()
		metrics.Saves.WithLabelValues(saver.Variant(), metrics.OutcomeRejected).Inc()
		return ErrSaveInProgress
	}
	s.status = StatusSaving
	draft := append([]byte(nil), s.draft...)
	s.mu.Unlock()

	start := time.Now()
	defer func() {
		s.mu.Lock()
		s.status = StatusIdle
		s.mu.Unlock()
		metrics.SaveDuration.WithLabelValues(saver.Variant()).Observe(time.Since(start).Seconds())
	}()

	payload, err := saver.Payload(ctx, draft)
	if err != nil {
		return s.saveFailed(doc.ID, saver, fmt.Errorf("%w: %w", ErrSerialization, err))
	}

	if err := s.store.UpdateDocument(ctx, doc.ID, payload); err != nil {
		return s.saveFailed(doc.ID, saver, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	s.mu.Lock()
	if s.syncedID == doc.ID {
		s.syncedHash = util.ContentHash(payload)
	}
	s.mu.Unlock()

	metrics.Saves.WithLabelValues(saver.Variant(), metrics.OutcomeSuccess).Inc()
	s.notifier.Notify(Event{Kind: SaveSucceeded, DocumentID: doc.ID})
	return nil
}

func (s *Session) saveFailed(id model.DocumentID, saver Saver, err error) error {
	metrics.Saves.WithLabelValues(saver.Variant(), metrics.OutcomeFailed).Inc()
	s.notifier.Notify(Event{Kind: SaveFailed, DocumentID: id, Err: err})
	return err
}
