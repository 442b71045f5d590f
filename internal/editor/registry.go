package editor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/metrics"
	"github.com/debemdeboas/the-draftroom/internal/repository"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var ErrSessionNotFound = errors.New("session not found")

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

// Registry holds the live editing sessions, one per browser.
type Registry struct {
	sessions sync.Map

	repo     repository.DocumentRepository
	notifier Notifier
}

func NewRegistry(repo repository.DocumentRepository, notifier Notifier) *Registry {
	return &Registry{
		repo:     repo,
		notifier: notifier,
	}
}

func (r *Registry) CreateSession() *Session {
	id := SessionID(uuid.New().String())
	session := NewSession(id, NewWorkspace(r.repo), r.notifier)
	r.sessions.Store(id, session)
	metrics.ActiveSessions.Inc()
	return session
}

func (r *Registry) GetSession(id SessionID) (*Session, error) {
	if v, ok := r.sessions.Load(id); ok {
		session := v.(*Session)
		session.Touch()
		return session, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
// created reports whether the caller must hand out the new id.
func (r *Registry) GetOrCreate(id SessionID) (session *Session, created bool) {
	if id != "" {
		if s, err := r.GetSession(id); err == nil {
			return s, false
		}
	}
	return r.CreateSession(), true
}

func (r *Registry) DeleteSession(id SessionID) {
	if _, ok := r.sessions.LoadAndDelete(id); ok {
		metrics.ActiveSessions.Dec()
	}
}

func (r *Registry) Len() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep drops sessions idle for longer than ttl. Sessions in the middle of
// a save are kept.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	removed := 0
	r.sessions.Range(func(key, value any) bool {
		session := value.(*Session)
		if session.Status() == StatusSaving || session.LastSeen().After(cutoff) {
			return true
		}
		if _, ok := r.sessions.LoadAndDelete(key); ok {
			metrics.ActiveSessions.Dec()
			removed++
		}
		return true
	})
	return removed
}

// StartSweeper runs Sweep on schedule until the returned cron is stopped.
func (r *Registry) StartSweeper(schedule string, ttl time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		if n := r.Sweep(ttl); n > 0 {
			editorLogger.Info().Int("removed", n).Int("remaining", r.Len()).Msg("Swept idle editor sessions")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
