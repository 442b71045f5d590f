package editor

import (
	"net/http"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/debemdeboas/the-draftroom/internal/model"
	"github.com/debemdeboas/the-draftroom/internal/render"
	"github.com/debemdeboas/the-draftroom/internal/theme"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsMaxMessage   = 4 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

type previewMessage struct {
	HTML         string   `json:"html"`
	Placeholders []string `json:"placeholders"`
	Characters   int      `json:"characters"`
}

// ServePreviewSocket keeps a preview pane in step with the text area. Every
// text message is the full draft; the reply is the rendered preview. Drafts
// for a document other than the session's current one are ignored.
func (h *Handler) ServePreviewSocket(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	cookie, err := r.Cookie(config.CookieSessionID)
	if err != nil {
		http.Error(w, config.ErrNoSession, http.StatusBadRequest)
		return
	}
	session, err := h.registry.GetSession(SessionID(cookie.Value))
	if err != nil {
		http.Error(w, config.ErrNoSession, http.StatusBadRequest)
		return
	}

	documentID := model.DocumentID(r.PathValue("id"))
	syntaxTheme := theme.GetSyntaxThemeFromRequest(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Debug().Err(err).Str("document_id", string(documentID)).Msg("Preview socket closed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if msgType != websocket.TextMessage {
			continue
		}
		if err := session.SetDraftFor(documentID, data); err != nil {
			continue
		}
		session.Touch()

		preview := render.RenderPreview(data, syntaxTheme, true)
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		err = conn.WriteJSON(previewMessage{
			HTML:         string(preview.HTML),
			Placeholders: preview.Placeholders,
			Characters:   session.Characters(),
		})
		if err != nil {
			l.Debug().Err(err).Msg("Preview socket write failed")
			return
		}
	}
}
