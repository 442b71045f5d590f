package auth

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/debemdeboas/the-draftroom/internal/auth/testdata"
	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authPage = `{{define "auth"}}<title>{{.SiteName}}</title><p>Redirect URL: {{.RedirectURL}}</p>{{end}}`

func decodeChallenge(t *testing.T, rec *httptest.ResponseRecorder) []byte {
	t.Helper()
	assert.Contains(t, rec.Header().Get(config.HCType), config.CTypeJSON)

	var body challengeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	raw, err := base64.StdEncoding.DecodeString(body.Challenge)
	require.NoError(t, err)
	return raw
}

func TestEd25519ChallengeHandler(t *testing.T) {
	provider := newTestProvider(t)
	handler := Ed25519ChallengeHandler(provider)

	t.Run("GET keeps the challenge", func(t *testing.T) {
		before := provider.GetChallenge()
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/auth/challenge", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, before, decodeChallenge(t, rec))
		assert.Equal(t, before, provider.GetChallenge())
	})

	t.Run("POST rotates the challenge", func(t *testing.T) {
		before := provider.GetChallenge()
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/auth/challenge", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeChallenge(t, rec)
		assert.NotEqual(t, before, got)
		assert.Equal(t, provider.GetChallenge(), got)
	})

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(method, "/auth/challenge", nil))
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestEd25519VerifyHandler(t *testing.T) {
	provider := newTestProvider(t)
	provider.challenge = testdata.TestChallenge
	handler := Ed25519VerifyHandler(provider)
	valid := base64.StdEncoding.EncodeToString(sign(t, testdata.TestChallenge))

	tests := []struct {
		name   string
		method string
		header string
		tls    bool
		status int
	}{
		{name: "valid", method: http.MethodPost, header: valid, status: http.StatusOK},
		{name: "valid over TLS", method: http.MethodPost, header: valid, tls: true, status: http.StatusOK},
		{name: "wrong signature", method: http.MethodPost, header: base64.StdEncoding.EncodeToString(make([]byte, 64)), status: http.StatusUnauthorized},
		{name: "missing header", method: http.MethodPost, status: http.StatusUnauthorized},
		{name: "not base64", method: http.MethodPost, header: "not-valid-base64!@#", status: http.StatusUnauthorized},
		{name: "GET", method: http.MethodGet, header: valid, status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/auth/verify", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			rec := httptest.NewRecorder()

			handler(rec, req)
			assert.Equal(t, tt.status, rec.Code)

			cookies := rec.Result().Cookies()
			if tt.status != http.StatusOK {
				assert.Empty(t, cookies)
				return
			}

			require.Len(t, cookies, 1)
			c := cookies[0]
			assert.Equal(t, config.CookieAuthToken, c.Name)
			assert.Equal(t, tt.header, c.Value)
			assert.Equal(t, "/", c.Path)
			assert.True(t, c.HttpOnly)
			assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
			assert.Equal(t, tt.tls, c.Secure)
			assert.Equal(t, 24*3600, c.MaxAge)
		})
	}
}

func TestEd25519AuthPageHandler(t *testing.T) {
	tmpl := template.Must(template.New("test").Parse(authPage))
	handler := Ed25519AuthPageHandler(newTestProvider(t), tmpl)

	tests := []struct {
		name       string
		query      string
		want       string
		hxRedirect string
	}{
		{name: "default", want: "Redirect URL: /</p>"},
		{name: "relative path", query: "?redirect=/documents/abc/edit", want: "Redirect URL: /documents/abc/edit</p>"},
		{name: "refresh", query: "?refresh=true", want: "Redirect URL: /</p>", hxRedirect: "/auth/login"},
		{name: "refresh false", query: "?refresh=false&redirect=/custom", want: "Redirect URL: /custom</p>"},
		{name: "absolute URL", query: "?redirect=https://example.com", want: "Redirect URL: /</p>"},
		{name: "protocol relative URL", query: "?redirect=//example.com", want: "Redirect URL: /</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/auth/login"+tt.query, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get(config.HCType), "text/html")
			assert.Equal(t, tt.hxRedirect, rec.Header().Get(config.HHxRedirect))
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestEd25519AuthPageHandler_TemplateError(t *testing.T) {
	tmpl := template.Must(template.New("test").Parse(`{{define "auth"}}{{.NonExistentField.BadCall}}{{end}}`))

	rec := httptest.NewRecorder()
	Ed25519AuthPageHandler(newTestProvider(t), tmpl)(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRegisterEd25519AuthRoutes(t *testing.T) {
	files := fstest.MapFS{
		"templates/ed25519_auth.html": {Data: []byte(authPage)},
	}
	mux := http.NewServeMux()
	require.NoError(t, RegisterEd25519AuthRoutes(mux, newTestProvider(t), files))

	for path, status := range map[string]int{
		"/auth/login":     http.StatusOK,
		"/auth/challenge": http.StatusOK,
		"/auth/verify":    http.StatusMethodNotAllowed,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, rec.Code, path)
	}
}

func TestRegisterEd25519AuthRoutes_MissingTemplate(t *testing.T) {
	err := RegisterEd25519AuthRoutes(http.NewServeMux(), newTestProvider(t), fstest.MapFS{})
	assert.Error(t, err)
}
