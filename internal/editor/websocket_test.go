package editor

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialPreview(t *testing.T, env *testEnv, id model.DocumentID) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	base, err := url.Parse(env.server.URL)
	require.NoError(t, err)

	header := http.Header{}
	for _, c := range env.client.Jar.Cookies(base) {
		header.Add("Cookie", c.String())
	}

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/preview/" + string(id)
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func TestPreviewSocket(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	doc := seedDocument(t, env.repo, "Letter", "Dear", model.FormatText, "alice")

	t.Run("without a session", func(t *testing.T) {
		_, resp, err := dialPreview(t, env, doc.ID)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	env.open(t, doc)

	conn, _, err := dialPreview(t, env, doc.ID)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("# Dear {{client_name}}")))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got previewMessage
	require.NoError(t, conn.ReadJSON(&got))

	assert.Contains(t, got.HTML, `<span class="placeholder">{{client_name}}</span>`)
	assert.Equal(t, []string{"{{client_name}}"}, got.Placeholders)
	assert.Equal(t, 22, got.Characters)

	session, err := env.registry.GetSession(SessionID(sessionCookie(t, env)))
	require.NoError(t, err)
	assert.Equal(t, "# Dear {{client_name}}", string(session.Draft()))
}

func sessionCookie(t *testing.T, env *testEnv) string {
	t.Helper()
	base, err := url.Parse(env.server.URL)
	require.NoError(t, err)
	for _, c := range env.client.Jar.Cookies(base) {
		if c.Name == config.CookieSessionID {
			return c.Value
		}
	}
	t.Fatal("no session cookie")
	return ""
}
