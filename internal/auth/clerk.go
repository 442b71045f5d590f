package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/db"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/rs/zerolog"
)

var ErrNoSessionClaims = errors.New("failed to get session claims from context")

// ClerkAuthProvider authenticates with Clerk session JWTs. When db is set the
// user webhook mirrors Clerk users into the users table.
type ClerkAuthProvider struct {
	db db.DB

	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkAuthProvider(clerkKey string, database db.DB) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		db: database,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie("__session")
			if err != nil || cookie == nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Authorization cookie not found")
				return ""
			}
			return cookie.Value
		}),
	}
}

func (c *ClerkAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
}

func (c *ClerkAuthProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok {
		return "", ErrNoSessionClaims
	}

	usr, err := clerkuser.Get(r.Context(), claims.Subject)
	if err != nil {
		return "", err
	}

	return model.UserID(usr.ID), nil
}

func (c *ClerkAuthProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	userID, err := c.GetUserIDFromSession(r)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Unauthorized access attempt")
		http.Error(w, config.ErrUnauthorized, http.StatusUnauthorized)
		return "", err
	}
	return userID, nil
}

type clerkEvent struct {
	Data struct {
		clerk.User
	} `json:"data"`

	Type string `json:"type"`
}

func displayName(usr *clerk.User) string {
	if usr.Username != nil && *usr.Username != "" {
		return *usr.Username
	}
	for _, acc := range usr.ExternalAccounts {
		if acc != nil && acc.Username != nil && *acc.Username != "" {
			return *acc.Username
		}
	}
	return usr.ID
}

func (c *ClerkAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	var payload clerkEvent
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		l.Error().Err(err).Msg("Error decoding event payload")
		http.Error(w, config.ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	usr := payload.Data.User
	l.Info().Str("event", payload.Type).Str("user_id", usr.ID).Msg("User webhook received")

	switch payload.Type {
	case "user.created":
		if err := c.upsertUser(r.Context(), usr.ID, displayName(&usr)); err != nil {
			l.Error().Err(err).Str("user_id", usr.ID).Msg("Error saving user")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)

	case "user.updated":
		if err := c.upsertUser(r.Context(), usr.ID, displayName(&usr)); err != nil {
			l.Error().Err(err).Str("user_id", usr.ID).Msg("Error updating user")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case "user.deleted":
		if c.db != nil {
			if _, err := c.db.Exec(r.Context(), "DELETE FROM users WHERE id = ?", usr.ID); err != nil {
				l.Error().Err(err).Str("user_id", usr.ID).Msg("Error deleting user")
				http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, config.ErrInvalidRequest, http.StatusBadRequest)
	}
}

func (c *ClerkAuthProvider) upsertUser(ctx context.Context, id, username string) error {
	if c.db == nil {
		return nil
	}
	_, err := c.db.Exec(ctx, `
INSERT INTO users (id, username) VALUES (?, ?)
ON CONFLICT (id) DO UPDATE SET username = excluded.username`, id, username)
	return err
}
