// Package auth identifies the user behind a request.
package auth

import (
	"net/http"

	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/rs/zerolog"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type AuthProvider interface {
	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetUserIDFromSession(r *http.Request) (model.UserID, error)

	// EnforceUserAndGetID writes a 401 response when there is no user.
	EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error)

	HandleWebhookUser(w http.ResponseWriter, r *http.Request)
}

// LocalUser owns every document when authentication is disabled.
const LocalUser model.UserID = "local"

// NoopAuthProvider treats every request as LocalUser.
type NoopAuthProvider struct{}

func (NoopAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), LocalUser)))
		})
	}
}

func (NoopAuthProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	return LocalUser, nil
}

func (NoopAuthProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	return LocalUser, nil
}

func (NoopAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
