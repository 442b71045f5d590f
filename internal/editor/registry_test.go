package editor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/db"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *repository.DBDocumentRepository {
	t.Helper()
	sqlite := db.NewSQLite(":memory:")
	require.NoError(t, sqlite.InitDB(context.Background()))
	t.Cleanup(func() { sqlite.Close() })

	repo := repository.NewDBDocumentRepository(sqlite)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func seedDocument(t *testing.T, repo repository.DocumentRepository, name, content string, format model.Format, owner model.UserID) *model.Document {
	t.Helper()
	doc := repo.NewDocument(name, format, owner)
	doc.SetContent([]byte(content))
	require.NoError(t, repo.SaveDocument(context.Background(), doc))
	return doc
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(newTestRepository(t), nil)

	s := registry.CreateSession()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, registry.Len())

	got, err := registry.GetSession(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = registry.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	again, created := registry.GetOrCreate(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	other, created := registry.GetOrCreate("missing")
	assert.True(t, created)
	assert.NotEqual(t, s.ID, other.ID)
	assert.Equal(t, 2, registry.Len())

	registry.DeleteSession(s.ID)
	registry.DeleteSession(s.ID)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	repo := newTestRepository(t)
	doc1 := seedDocument(t, repo, "One", "first", model.FormatText, "")
	doc2 := seedDocument(t, repo, "Two", "second", model.FormatText, "")

	registry := NewRegistry(repo, nil)
	a := registry.CreateSession()
	b := registry.CreateSession()

	a.Open(doc1)
	b.Open(doc2)

	assert.Equal(t, "first", string(a.Draft()))
	assert.Equal(t, "second", string(b.Draft()))
	assert.Equal(t, doc1.ID, a.Store().CurrentDocument().ID)
	assert.Equal(t, doc2.ID, b.Store().CurrentDocument().ID)
}

func TestRegistrySweep(t *testing.T) {
	registry := NewRegistry(newTestRepository(t), nil)

	fresh := registry.CreateSession()
	stale := registry.CreateSession()
	saving := registry.CreateSession()

	old := time.Now().Add(-3 * time.Hour)
	stale.mu.Lock()
	stale.lastSeen = old
	stale.mu.Unlock()
	saving.mu.Lock()
	saving.lastSeen = old
	saving.status = StatusSaving
	saving.mu.Unlock()

	removed := registry.Sweep(time.Hour)
	assert.Equal(t, 1, removed)

	_, err := registry.GetSession(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = registry.GetSession(fresh.ID)
	assert.NoError(t, err)
	_, err = registry.GetSession(saving.ID)
	assert.NoError(t, err, "sessions that are saving are kept")
}

func TestRegistryGetSessionTouches(t *testing.T) {
	registry := NewRegistry(newTestRepository(t), nil)
	s := registry.CreateSession()

	s.mu.Lock()
	s.lastSeen = time.Now().Add(-3 * time.Hour)
	s.mu.Unlock()

	_, err := registry.GetSession(s.ID)
	require.NoError(t, err)
	assert.Zero(t, registry.Sweep(time.Hour))
}

func TestStartSweeper(t *testing.T) {
	registry := NewRegistry(newTestRepository(t), nil)

	_, err := registry.StartSweeper("not a schedule", time.Hour)
	assert.Error(t, err)

	c, err := registry.StartSweeper("@every 1h", time.Hour)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}

func TestWorkspace(t *testing.T) {
	repo := newTestRepository(t)
	doc := seedDocument(t, repo, "Letter", "Dear {{client_name}}", model.FormatText, "")
	ws := NewWorkspace(repo)

	assert.Nil(t, ws.CurrentDocument())

	ws.SetCurrentDocument(doc)
	current := ws.CurrentDocument()
	require.NotNil(t, current)
	assert.Equal(t, doc.ID, current.ID)

	require.NoError(t, ws.UpdateDocument(context.Background(), doc.ID, []byte("Hello {{client_name}}")))
	assert.Equal(t, "Hello {{client_name}}", string(ws.CurrentDocument().Content))

	err := ws.UpdateDocument(context.Background(), "missing", []byte("x"))
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)

	ws.SetCurrentDocument(nil)
	assert.Nil(t, ws.CurrentDocument())
}

func TestWorkspaceUnreadableDocument(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { SetLogger(zerolog.Nop()) })

	repo := newTestRepository(t)
	ws := NewWorkspace(repo)
	ws.SetCurrentDocument(&model.Document{ID: "gone"})

	assert.Nil(t, ws.CurrentDocument())
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"document_id":"gone"`)
	assert.Contains(t, buf.String(), repository.ErrDocumentNotFound.Error())
}

func TestWorkspaceSaveThroughSession(t *testing.T) {
	repo := newTestRepository(t)
	doc := seedDocument(t, repo, "Letter", "Dear {{client_name}}", model.FormatText, "")

	s := NewSession("s", NewWorkspace(repo), nil)
	s.Open(doc)
	s.InsertPlaceholder(&testSurface{start: 4, end: 4}, ",")

	require.NoError(t, s.Save(context.Background(), PlainSaver{}))

	stored, err := repo.ReadDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dear, {{client_name}}", string(stored.Content))
	assert.False(t, s.Sync(), "a saved draft is already in sync")
}
